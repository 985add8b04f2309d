package dbx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}

	name, ok := UniqueViolation(dup)
	assert.True(t, ok)
	assert.Equal(t, "users_email_key", name)

	name, ok = UniqueViolation(fmt.Errorf("insert: %w", dup))
	assert.True(t, ok, "wrapped errors are unwrapped")
	assert.Equal(t, "users_email_key", name)

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok, "foreign key violation is not a unique violation")

	_, ok = UniqueViolation(errors.New("connection refused"))
	assert.False(t, ok)

	_, ok = UniqueViolation(nil)
	assert.False(t, ok)
}
