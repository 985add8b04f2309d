// Package passwordreset issues and redeems password reset requests recorded
// in the persistent ledger.
//
// Unlike signup confirmation a reset request is single shot: any failed
// redemption deactivates it.
package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/common"
	"github.com/dmitrijs2005/timecaddy/internal/dbx"
	"github.com/dmitrijs2005/timecaddy/internal/logging"
	"github.com/dmitrijs2005/timecaddy/internal/server/accounts"
	"github.com/dmitrijs2005/timecaddy/internal/server/credentials"
	"github.com/dmitrijs2005/timecaddy/internal/server/models"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/resetrequests"
	"github.com/dmitrijs2005/timecaddy/internal/server/tokenstore"
	"github.com/jmoiron/sqlx"
)

const (
	DefaultLifespan    = 6 * time.Hour
	DefaultWindow      = 24 * time.Hour
	DefaultMaxRequests = 5
	DefaultCooldown    = time.Minute
	DefaultMaxAttempts = 8

	tokenBytes     = 16
	cooldownPrefix = "password_reset_cooldown:"
)

var errRateLimited = errors.New("reset rate limit reached")

// Config tunes the flow. Zero values select the defaults, except for
// Cooldown where zero disables the cooldown marker.
type Config struct {
	Lifespan    time.Duration
	Window      time.Duration
	MaxRequests int
	Cooldown    time.Duration
	MaxAttempts int
}

type Tokens struct {
	ConfirmToken string
	URLToken     string
}

// TokenGenerator returns a fresh random token.
type TokenGenerator func() (string, error)

type Option func(*Flow)

func WithTokenGenerator(g TokenGenerator) Option {
	return func(f *Flow) { f.newToken = g }
}

// Flow is the Reset Flow.
type Flow struct {
	db        *sqlx.DB
	rm        repomanager.RepositoryManager
	store     tokenstore.Store
	lifecycle *accounts.Lifecycle
	hasher    *credentials.Hasher
	cfg       Config
	newToken  TokenGenerator
	logger    logging.Logger
}

func NewFlow(db *sqlx.DB, rm repomanager.RepositoryManager, store tokenstore.Store, lc *accounts.Lifecycle,
	hasher *credentials.Hasher, cfg Config, l logging.Logger, opts ...Option) *Flow {
	if cfg.Lifespan <= 0 {
		cfg.Lifespan = DefaultLifespan
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	f := &Flow{
		db:        db,
		rm:        rm,
		store:     store,
		lifecycle: lc,
		hasher:    hasher,
		cfg:       cfg,
		newToken:  func() (string, error) { return common.MakeRandHexString(tokenBytes) },
		logger:    l.With("module", "passwordreset"),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Lifespan is how long an issued request stays usable.
func (f *Flow) Lifespan() time.Duration { return f.cfg.Lifespan }

func cooldownKey(userID string) string { return cooldownPrefix + userID }

// RequestReset records a new active request for u, deactivating earlier ones,
// and returns the tokens to deliver.
func (f *Flow) RequestReset(ctx context.Context, u *models.User, now time.Time) (RequestResult, Tokens, error) {
	if u.Disabled {
		return RequestDisabled, Tokens{}, nil
	}
	if f.lifecycle.StateOf(u, now) != accounts.Confirmed {
		return RequestUnconfirmed, Tokens{}, nil
	}

	if f.cfg.Cooldown > 0 {
		_, cooling, err := f.store.Get(ctx, cooldownKey(u.ID))
		if err != nil {
			return f.requestTechnical(ctx, "check cooldown", err)
		}
		if cooling {
			return RateLimited, Tokens{}, nil
		}
	}

	confirmToken, err := f.newToken()
	if err != nil {
		return f.requestTechnical(ctx, "generate confirm token", err)
	}
	hash, salt, err := f.hasher.HashPassword(confirmToken, "")
	if err != nil {
		return f.requestTechnical(ctx, "hash confirm token", err)
	}

	var urlToken string
	err = dbx.WithTx(ctx, f.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := f.rm.ResetRequests(tx)
		if err := repo.LockOwner(ctx, u.ID); err != nil {
			return err
		}

		n, err := repo.CountSince(ctx, u.ID, now.Add(-f.cfg.Window))
		if err != nil {
			return err
		}
		if n >= f.cfg.MaxRequests {
			return errRateLimited
		}

		tok, err := f.uniqueURLToken(ctx, repo, confirmToken)
		if err != nil {
			return err
		}

		if _, err := repo.DeactivateAll(ctx, u.ID); err != nil {
			return err
		}
		_, err = repo.Create(ctx, &models.PasswordResetRequest{
			UserID:                 u.ID,
			RequestTime:            now,
			PasswordResetTokenHash: hash,
			PasswordResetTokenSalt: salt,
			PasswordResetURLToken:  tok,
			Active:                 true,
		})
		if err != nil {
			return err
		}
		urlToken = tok
		return nil
	})
	if errors.Is(err, errRateLimited) {
		f.logger.Warn(ctx, "password reset rate limited", "user_id", u.ID)
		return RateLimited, Tokens{}, nil
	}
	if err != nil {
		return f.requestTechnical(ctx, "record request", err)
	}

	if f.cfg.Cooldown > 0 {
		if err := f.store.SetWithExpiry(ctx, cooldownKey(u.ID), "1", f.cfg.Cooldown); err != nil {
			f.logger.Warn(ctx, "failed to set reset cooldown", "user_id", u.ID, "error", err)
		}
	}

	f.logger.Info(ctx, "password reset requested", "user_id", u.ID)
	return Requested, Tokens{ConfirmToken: confirmToken, URLToken: urlToken}, nil
}

func (f *Flow) uniqueURLToken(ctx context.Context, repo resetrequests.Repository, confirmToken string) (string, error) {
	for range f.cfg.MaxAttempts {
		candidate, err := f.newToken()
		if err != nil {
			return "", err
		}
		if candidate == confirmToken {
			continue
		}
		taken, err := repo.URLTokenExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", common.ErrorTokenCollision
}

// ResetPassword redeems code for the request identified by urlToken and sets
// newPassword. An invalid new password is reported before the request is
// touched; every other failure deactivates it.
func (f *Flow) ResetPassword(ctx context.Context, urlToken, code, newPassword string, now time.Time) (Result, error) {
	if err := accounts.ValidatePassword(newPassword); err != nil {
		return InvalidPassword, nil
	}

	requests := f.rm.ResetRequests(f.db)
	req, err := requests.GetByURLToken(ctx, urlToken)
	if errors.Is(err, common.ErrorNotFound) {
		return Expired, nil
	}
	if err != nil {
		return f.technical(ctx, "load request", err)
	}
	if !req.Usable(now, f.cfg.Lifespan) {
		return f.burn(ctx, req, Expired)
	}

	u, err := f.rm.Users(f.db).GetByID(ctx, req.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		return f.burn(ctx, req, Expired)
	}
	if err != nil {
		return f.technical(ctx, "load user", err)
	}
	if u.Disabled {
		return f.burn(ctx, req, Disabled)
	}

	match, err := f.hasher.VerifyPassword(code, req.PasswordResetTokenHash, req.PasswordResetTokenSalt)
	if err != nil {
		return f.technical(ctx, "verify code", err)
	}
	if !match {
		f.logger.Info(ctx, "wrong password reset code", "user_id", u.ID)
		return f.burn(ctx, req, WrongCode)
	}

	ok, err := requests.Deactivate(ctx, req.ID)
	if err != nil {
		return f.technical(ctx, "deactivate request", err)
	}
	if !ok {
		return Expired, nil
	}

	hash, salt, err := f.hasher.HashPassword(newPassword, "")
	if err != nil {
		return f.technical(ctx, "hash password", err)
	}
	if err := f.rm.Users(f.db).SetPassword(ctx, u.ID, hash, salt); err != nil {
		return f.technical(ctx, "persist password", err)
	}

	f.logger.Info(ctx, "password reset", "user_id", u.ID)
	return Success, nil
}

// burn deactivates req and reports res.
func (f *Flow) burn(ctx context.Context, req *models.PasswordResetRequest, res Result) (Result, error) {
	if !req.Active {
		return res, nil
	}
	if _, err := f.rm.ResetRequests(f.db).Deactivate(ctx, req.ID); err != nil {
		return f.technical(ctx, "deactivate request", err)
	}
	return res, nil
}

func (f *Flow) requestTechnical(ctx context.Context, op string, err error) (RequestResult, Tokens, error) {
	f.logger.Error(ctx, "password reset request failed", "op", op, "error", err)
	return RequestTechnicalError, Tokens{}, fmt.Errorf("%s: %w", op, err)
}

func (f *Flow) technical(ctx context.Context, op string, err error) (Result, error) {
	f.logger.Error(ctx, "password reset failed", "op", op, "error", err)
	return TechnicalError, fmt.Errorf("%s: %w", op, err)
}
