package resetrequests

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/server/models"
)

// Repository persists the password reset ledger.
type Repository interface {
	// LockOwner takes a row lock on the owning user for the rest of the
	// enclosing transaction, serialising concurrent requests per user.
	LockOwner(ctx context.Context, userID string) error

	// CountSince counts requests of userID with request_time >= since.
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)

	URLTokenExists(ctx context.Context, urlToken string) (bool, error)

	// DeactivateAll clears the active flag on every request of userID.
	DeactivateAll(ctx context.Context, userID string) (int64, error)

	Create(ctx context.Context, r *models.PasswordResetRequest) (*models.PasswordResetRequest, error)
	GetByURLToken(ctx context.Context, urlToken string) (*models.PasswordResetRequest, error)

	// Deactivate clears the active flag of one request and reports whether
	// it was active before.
	Deactivate(ctx context.Context, id string) (bool, error)
}
