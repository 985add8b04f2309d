// Package accountctl implements administrative account commands: disabling
// and enabling users, setting passwords and purging stale signups.
package accountctl

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/timecaddy/internal/dbx"
	"github.com/dmitrijs2005/timecaddy/internal/logging"
	"github.com/dmitrijs2005/timecaddy/internal/server/accounts"
	"github.com/dmitrijs2005/timecaddy/internal/server/credentials"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timecaddy/internal/timex"
)

type Admin struct {
	db        dbx.DBTX
	rm        repomanager.RepositoryManager
	lifecycle *accounts.Lifecycle
	hasher    *credentials.Hasher
	now       timex.Clock
	logger    logging.Logger
}

func NewAdmin(db dbx.DBTX, rm repomanager.RepositoryManager, lc *accounts.Lifecycle, h *credentials.Hasher,
	clock timex.Clock, l logging.Logger) *Admin {
	return &Admin{db: db, rm: rm, lifecycle: lc, hasher: h, now: clock, logger: l.With("module", "accountctl")}
}

func (a *Admin) setDisabled(ctx context.Context, username string, disabled bool) error {
	repo := a.rm.Users(a.db)
	u, err := repo.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("find %q: %w", username, err)
	}
	if err := repo.SetDisabled(ctx, u.ID, disabled); err != nil {
		return fmt.Errorf("update %q: %w", username, err)
	}
	a.logger.Info(ctx, "account updated", "user_id", u.ID, "disabled", disabled)
	return nil
}

func (a *Admin) Disable(ctx context.Context, username string) error {
	return a.setDisabled(ctx, username, true)
}

func (a *Admin) Enable(ctx context.Context, username string) error {
	return a.setDisabled(ctx, username, false)
}

// SetPassword replaces the password of username after validating it.
func (a *Admin) SetPassword(ctx context.Context, username, password string) error {
	if err := accounts.ValidatePassword(password); err != nil {
		return err
	}

	repo := a.rm.Users(a.db)
	u, err := repo.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("find %q: %w", username, err)
	}

	hash, salt, err := a.hasher.HashPassword(password, "")
	if err != nil {
		return err
	}
	if err := repo.SetPassword(ctx, u.ID, hash, salt); err != nil {
		return fmt.Errorf("update %q: %w", username, err)
	}
	a.logger.Info(ctx, "password set", "user_id", u.ID)
	return nil
}

// PurgeStale deletes every unconfirmed signup past the inactivity window.
func (a *Admin) PurgeStale(ctx context.Context) (int64, error) {
	n, err := a.lifecycle.PurgeAllStale(ctx, a.now())
	if err != nil {
		return 0, err
	}
	a.logger.Info(ctx, "stale signups purged", "count", n)
	return n, nil
}
