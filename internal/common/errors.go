// Package common defines shared sentinel errors and small helpers used
// across the timecaddy server and tools. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Credential errors.
	ErrorMalformedSalt = errors.New("malformed salt")

	// Token errors.
	ErrorTokenStoreUnavailable = errors.New("token store unavailable")
	ErrorTokenCollision        = errors.New("token collision retries exhausted")
)

// ConstraintError reports a unique-constraint violation. Constraint holds the
// logical field name ("username", "email", "url_token") when it is known.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %v", e.Constraint, ErrorAlreadyExists)
}

// Unwrap makes errors.Is(err, ErrorAlreadyExists) hold.
func (e *ConstraintError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrorAlreadyExists}
	}
	return []error{ErrorAlreadyExists, e.Err}
}
