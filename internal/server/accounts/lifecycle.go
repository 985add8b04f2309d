package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/common"
	"github.com/dmitrijs2005/timecaddy/internal/dbx"
	"github.com/dmitrijs2005/timecaddy/internal/logging"
	"github.com/dmitrijs2005/timecaddy/internal/server/models"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/repomanager"
)

// Lifecycle applies state transitions to persisted users. Every method takes
// the reference time explicitly.
type Lifecycle struct {
	db     dbx.DBTX
	rm     repomanager.RepositoryManager
	window time.Duration
	logger logging.Logger
}

func NewLifecycle(db dbx.DBTX, rm repomanager.RepositoryManager, window time.Duration, l logging.Logger) *Lifecycle {
	if window <= 0 {
		window = DefaultInactivityWindow
	}
	return &Lifecycle{db: db, rm: rm, window: window, logger: l.With("module", "accounts")}
}

// Window returns the inactivity window.
func (l *Lifecycle) Window() time.Duration { return l.window }

// StateOf evaluates u at now under the configured window.
func (l *Lifecycle) StateOf(u *models.User, now time.Time) State {
	return StateAt(u, now, l.window)
}

// Confirm marks u confirmed at now. It returns false without writing when u
// is already confirmed at now. The update is conditional in the store, so of
// two racing confirmations only one reports true.
func (l *Lifecycle) Confirm(ctx context.Context, u *models.User, now time.Time) (bool, error) {
	if IsConfirmed(u, now) {
		return false, nil
	}
	ok, err := l.rm.Users(l.db).Confirm(ctx, u.ID, now)
	if err != nil {
		return false, err
	}
	if ok {
		t := now
		u.SignupConfirmationTime = &t
	}
	return ok, nil
}

// DestroyIfUnconfirmedStale deletes u when it is stale at now and returns
// nil in that case; otherwise u is returned unchanged. The delete re-checks
// the predicate in the store, so a concurrent confirmation wins.
func (l *Lifecycle) DestroyIfUnconfirmedStale(ctx context.Context, u *models.User, now time.Time) (*models.User, error) {
	if l.StateOf(u, now) != UnconfirmedStale {
		return u, nil
	}
	deleted, err := l.rm.Users(l.db).DeleteIfUnconfirmedStale(ctx, u.ID, now, l.window)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return u, nil
	}
	l.logger.Info(ctx, "purged stale signup", "user_id", u.ID)
	return nil, nil
}

// FindByUsernameOrEmail looks input up by email when it is syntactically an
// email address and by username otherwise.
func (l *Lifecycle) FindByUsernameOrEmail(ctx context.Context, input string) (*models.User, error) {
	repo := l.rm.Users(l.db)
	if IsEmail(input) {
		return repo.GetByEmail(ctx, input)
	}
	return repo.GetByUsername(ctx, input)
}

// Lookup finds a user by username or email and purges it when stale.
// It returns common.ErrorNotFound when there is no usable row; purged is true
// when a row existed but was just destroyed.
func (l *Lifecycle) Lookup(ctx context.Context, input string, now time.Time) (u *models.User, purged bool, err error) {
	u, err = l.FindByUsernameOrEmail(ctx, input)
	if err != nil {
		return nil, false, err
	}
	return l.purge(ctx, u, now)
}

// LookupByUsername is Lookup restricted to the username column.
func (l *Lifecycle) LookupByUsername(ctx context.Context, username string, now time.Time) (*models.User, bool, error) {
	u, err := l.rm.Users(l.db).GetByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	return l.purge(ctx, u, now)
}

// PurgeIdentifiers destroys stale rows holding username or email so that a
// new signup for them is not blocked.
func (l *Lifecycle) PurgeIdentifiers(ctx context.Context, username, email string, now time.Time) error {
	repo := l.rm.Users(l.db)
	lookups := []func(context.Context, string) (*models.User, error){repo.GetByUsername, repo.GetByEmail}
	for i, key := range []string{username, email} {
		if key == "" {
			continue
		}
		u, err := lookups[i](ctx, key)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := l.DestroyIfUnconfirmedStale(ctx, u, now); err != nil {
			return err
		}
	}
	return nil
}

// PurgeAllStale deletes every stale unconfirmed signup at now.
func (l *Lifecycle) PurgeAllStale(ctx context.Context, now time.Time) (int64, error) {
	return l.rm.Users(l.db).DeleteAllUnconfirmedStale(ctx, now, l.window)
}

func (l *Lifecycle) purge(ctx context.Context, u *models.User, now time.Time) (*models.User, bool, error) {
	kept, err := l.DestroyIfUnconfirmedStale(ctx, u, now)
	if err != nil {
		return nil, false, err
	}
	if kept == nil {
		return nil, true, common.ErrorNotFound
	}
	return kept, false, nil
}
