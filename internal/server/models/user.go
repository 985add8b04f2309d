// Package models defines server-side rows persisted in the database.
package models

import "time"

// User is one account. SignupConfirmationTime is nil until the signup is
// confirmed. PasswordHash is always the hash of the current password under
// PasswordSalt.
type User struct {
	ID                     string     `db:"id"`
	Username               string     `db:"username"`
	Email                  string     `db:"email"`
	PasswordHash           string     `db:"password_hash"`
	PasswordSalt           string     `db:"password_salt"`
	SignupTime             time.Time  `db:"signup_time"`
	SignupConfirmationTime *time.Time `db:"signup_confirmation_time"`
	Disabled               bool       `db:"disabled"`
	DefaultTimezone        string     `db:"default_timezone"`
}
