package models

import "time"

// PasswordResetRequest is one attempt to reset a user's password.
// At most one request per user is Active at any time.
type PasswordResetRequest struct {
	ID                     string    `db:"id"`
	UserID                 string    `db:"user_id"`
	RequestTime            time.Time `db:"request_time"`
	PasswordResetTokenHash string    `db:"password_reset_token_hash"`
	PasswordResetTokenSalt string    `db:"password_reset_token_salt"`
	PasswordResetURLToken  string    `db:"password_reset_url_token"`
	Active                 bool      `db:"active"`
}

// Usable reports whether the request can still be redeemed at now.
func (r *PasswordResetRequest) Usable(now time.Time, lifespan time.Duration) bool {
	return r.Active && now.Before(r.RequestTime.Add(lifespan))
}
