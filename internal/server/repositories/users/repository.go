package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/server/models"
)

// Repository persists users. Lookups return common.ErrorNotFound when no row
// matches; inserts report duplicates as *common.ConstraintError.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Confirm sets the confirmation time to now unless the user is already
	// confirmed at now. It reports whether a row changed.
	Confirm(ctx context.Context, id string, now time.Time) (bool, error)

	// DeleteIfUnconfirmedStale deletes the user when it is unconfirmed at now
	// and signed up before now-window. It reports whether a row was deleted.
	DeleteIfUnconfirmedStale(ctx context.Context, id string, now time.Time, window time.Duration) (bool, error)

	// DeleteUnconfirmed deletes the user only while it has no confirmation
	// time. It reports whether a row was deleted.
	DeleteUnconfirmed(ctx context.Context, id string) (bool, error)

	// DeleteAllUnconfirmedStale is the bulk form of DeleteIfUnconfirmedStale.
	DeleteAllUnconfirmedStale(ctx context.Context, now time.Time, window time.Duration) (int64, error)

	SetPassword(ctx context.Context, id, hash, salt string) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
}
