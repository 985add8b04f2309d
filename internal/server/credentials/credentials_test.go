package credentials

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/timecaddy/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast
var testParams = Params{Time: 1, MemoryKiB: 64, Threads: 1}

func TestHashPassword_GeneratesSaltAndVerifies(t *testing.T) {
	h := NewHasher(testParams)

	hash, salt, err := h.HashPassword("correct horse", "")
	require.NoError(t, err)
	require.NotEmpty(t, salt)
	assert.True(t, strings.HasPrefix(hash, "argon2id$v=19$m=64,t=1,p=1$"), hash)

	ok, err := h.VerifyPassword("correct horse", hash, salt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPassword_DeterministicForSalt(t *testing.T) {
	h := NewHasher(testParams)
	salt, err := NewSalt()
	require.NoError(t, err)

	a, s1, err := h.HashPassword("pw", salt)
	require.NoError(t, err)
	b, s2, err := h.HashPassword("pw", salt)
	require.NoError(t, err)

	assert.Equal(t, salt, s1)
	assert.Equal(t, salt, s2)
	assert.Equal(t, a, b)
}

func TestHashPassword_FreshSaltEachTime(t *testing.T) {
	h := NewHasher(testParams)

	a, s1, err := h.HashPassword("pw", "")
	require.NoError(t, err)
	b, s2, err := h.HashPassword("pw", "")
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_WrongPasswordIsNotAnError(t *testing.T) {
	h := NewHasher(testParams)
	hash, salt, err := h.HashPassword("secret1", "")
	require.NoError(t, err)

	ok, err := h.VerifyPassword("secret2", hash, salt)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_WrongSaltFails(t *testing.T) {
	h := NewHasher(testParams)
	hash, _, err := h.HashPassword("secret", "")
	require.NoError(t, err)
	other, err := NewSalt()
	require.NoError(t, err)

	ok, err := h.VerifyPassword("secret", hash, other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_SurvivesCostChange(t *testing.T) {
	old := NewHasher(testParams)
	hash, salt, err := old.HashPassword("pw", "")
	require.NoError(t, err)

	newer := NewHasher(Params{Time: 2, MemoryKiB: 128, Threads: 2})
	ok, err := newer.VerifyPassword("pw", hash, salt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMalformedSalt(t *testing.T) {
	h := NewHasher(testParams)

	for _, salt := range []string{"not base64!!", "c2hvcnQ", strings.Repeat("A", 40)} {
		_, _, err := h.HashPassword("pw", salt)
		require.ErrorIs(t, err, common.ErrorMalformedSalt, salt)

		ok, err := h.VerifyPassword("pw", "argon2id$v=19$m=64,t=1,p=1$AAAA", salt)
		require.ErrorIs(t, err, common.ErrorMalformedSalt, salt)
		assert.False(t, ok)
	}
}

func TestMalformedHash(t *testing.T) {
	h := NewHasher(testParams)
	salt, err := NewSalt()
	require.NoError(t, err)

	for _, hash := range []string{
		"",
		"bcrypt$x$y$z",
		"argon2id$v=18$m=64,t=1,p=1$AAAA",
		"argon2id$v=19$m=0,t=1,p=1$AAAA",
		"argon2id$v=19$garbage$AAAA",
		"argon2id$v=19$m=64,t=1,p=1$",
	} {
		ok, err := h.VerifyPassword("pw", hash, salt)
		require.ErrorIs(t, err, ErrMalformedHash, hash)
		assert.False(t, ok)
	}
}

func TestNewHasher_FillsZeroParams(t *testing.T) {
	h := NewHasher(Params{})
	assert.Equal(t, DefaultParams, h.params)
}
