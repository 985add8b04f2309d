// Package accounts implements the account lifecycle: the state of a user
// relative to an explicit reference time, confirmation, lazy purge of stale
// unconfirmed signups, identifier lookup and signup input validation.
package accounts

import (
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/server/models"
)

// DefaultInactivityWindow is how long an unconfirmed signup stays fresh.
const DefaultInactivityWindow = 7 * 24 * time.Hour

// State is the confirmation state of a user at a given time. Disabled is an
// orthogonal flag carried on the user itself.
type State int

const (
	UnconfirmedFresh State = iota
	UnconfirmedStale
	Confirmed
)

func (s State) String() string {
	switch s {
	case UnconfirmedFresh:
		return "unconfirmed_fresh"
	case UnconfirmedStale:
		return "unconfirmed_stale"
	case Confirmed:
		return "confirmed"
	}
	return "unknown"
}

// IsConfirmed reports whether the confirmation time is set and not after now.
func IsConfirmed(u *models.User, now time.Time) bool {
	return u.SignupConfirmationTime != nil && !u.SignupConfirmationTime.After(now)
}

// StateAt evaluates u at now. An unconfirmed user is still fresh at exactly
// signup_time + window and becomes stale strictly after it. A strict
// "signup_time + window > now" freshness test would make that instant stale;
// the inclusive boundary is intended and covered by tests.
func StateAt(u *models.User, now time.Time, window time.Duration) State {
	if IsConfirmed(u, now) {
		return Confirmed
	}
	if now.After(u.SignupTime.Add(window)) {
		return UnconfirmedStale
	}
	return UnconfirmedFresh
}
