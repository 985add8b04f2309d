// Package credentials hashes and verifies secrets (passwords and emailed
// confirmation codes) with argon2id under a per-secret random salt.
//
// Salts are 16 random bytes, base64 encoded. Hashes are self-describing so
// that changing the cost parameters does not invalidate stored hashes:
//
//	argon2id$v=19$m=65536,t=1,p=4$<base64 key>
package credentials

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/timecaddy/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	keyLen  = 32
)

// ErrMalformedHash is returned when a stored hash cannot be parsed.
var ErrMalformedHash = errors.New("malformed hash")

var encoding = base64.RawStdEncoding

// Params are the argon2id cost parameters used for new hashes.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultParams follow the argon2 RFC recommendation for interactive logins.
var DefaultParams = Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4}

// Hasher is the Credential Store. It is stateless and safe for concurrent use.
type Hasher struct {
	params Params
}

func NewHasher(p Params) *Hasher {
	if p.Time == 0 {
		p.Time = DefaultParams.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultParams.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = DefaultParams.Threads
	}
	return &Hasher{params: p}
}

// NewSalt returns a fresh random salt.
func NewSalt() (string, error) {
	b := make([]byte, saltLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return encoding.EncodeToString(b), nil
}

// HashPassword hashes plaintext under salt. When salt is empty a fresh one is
// generated. The result is deterministic for a given (plaintext, salt).
func (h *Hasher) HashPassword(plaintext, salt string) (hash string, usedSalt string, err error) {
	if salt == "" {
		if salt, err = NewSalt(); err != nil {
			return "", "", err
		}
	}

	raw, err := decodeSalt(salt)
	if err != nil {
		return "", "", err
	}

	p := h.params
	key := argon2.IDKey([]byte(plaintext), raw, p.Time, p.MemoryKiB, p.Threads, keyLen)

	hash = fmt.Sprintf("argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		argon2.Version, p.MemoryKiB, p.Time, p.Threads, encoding.EncodeToString(key))
	return hash, salt, nil
}

// VerifyPassword reports whether plaintext hashes to hash under salt. A
// wrong password is (false, nil); only a malformed salt or hash is an error.
func (h *Hasher) VerifyPassword(plaintext, hash, salt string) (bool, error) {
	raw, err := decodeSalt(salt)
	if err != nil {
		return false, err
	}

	p, want, err := parseHash(hash)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(plaintext), raw, p.Time, p.MemoryKiB, p.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func decodeSalt(salt string) ([]byte, error) {
	raw, err := encoding.DecodeString(salt)
	if err != nil || len(raw) != saltLen {
		return nil, common.ErrorMalformedSalt
	}
	return raw, nil
}

func parseHash(hash string) (Params, []byte, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 4 || parts[0] != "argon2id" {
		return Params{}, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, ErrMalformedHash
	}

	var p Params
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &p.Threads); err != nil {
		return Params{}, nil, ErrMalformedHash
	}
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return Params{}, nil, ErrMalformedHash
	}

	key, err := encoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return Params{}, nil, ErrMalformedHash
	}

	return p, key, nil
}
