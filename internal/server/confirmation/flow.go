// Package confirmation issues and redeems signup confirmation cycles.
//
// A cycle lives in the token store as four keys: the url token pointing at
// the username, the hash and salt of the emailed code, and a cooldown marker
// that suppresses resends. The code is retry tolerant: a wrong submission
// leaves the cycle intact until its TTL lapses.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/common"
	"github.com/dmitrijs2005/timecaddy/internal/logging"
	"github.com/dmitrijs2005/timecaddy/internal/server/accounts"
	"github.com/dmitrijs2005/timecaddy/internal/server/credentials"
	"github.com/dmitrijs2005/timecaddy/internal/server/tokenstore"
)

const (
	DefaultCooldown    = 5 * time.Minute
	DefaultLifespan    = time.Hour
	DefaultMaxAttempts = 8

	tokenBytes = 16
)

// Config holds the TTLs of a cycle. Zero values select the defaults.
type Config struct {
	Cooldown    time.Duration
	Lifespan    time.Duration
	MaxAttempts int
}

// Tokens are handed to the notifier and never stored in plain text.
type Tokens struct {
	ConfirmToken string
	URLToken     string
}

// TokenGenerator returns a fresh random token.
type TokenGenerator func() (string, error)

func randomToken() (string, error) {
	return common.MakeRandHexString(tokenBytes)
}

type Option func(*Flow)

// WithTokenGenerator replaces the random source for both tokens.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(f *Flow) { f.newToken = g }
}

// Flow is the Confirmation Flow.
type Flow struct {
	store     tokenstore.Store
	lifecycle *accounts.Lifecycle
	hasher    *credentials.Hasher
	cfg       Config
	newToken  TokenGenerator
	logger    logging.Logger
}

func NewFlow(store tokenstore.Store, lc *accounts.Lifecycle, hasher *credentials.Hasher, cfg Config, l logging.Logger, opts ...Option) *Flow {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Lifespan <= 0 {
		cfg.Lifespan = DefaultLifespan
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	f := &Flow{
		store:     store,
		lifecycle: lc,
		hasher:    hasher,
		cfg:       cfg,
		newToken:  randomToken,
		logger:    l.With("module", "confirmation"),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Lifespan is how long an issued cycle stays redeemable.
func (f *Flow) Lifespan() time.Duration { return f.cfg.Lifespan }

// Issue starts a new cycle for username, replacing any previous one.
func (f *Flow) Issue(ctx context.Context, username string) (Tokens, error) {
	confirmToken, err := f.newToken()
	if err != nil {
		return Tokens{}, fmt.Errorf("generate confirm token: %w", err)
	}
	hash, salt, err := f.hasher.HashPassword(confirmToken, "")
	if err != nil {
		return Tokens{}, fmt.Errorf("hash confirm token: %w", err)
	}

	var urlToken string
	err = f.store.Atomically(ctx, func(tx tokenstore.Tx) error {
		if err := tx.SetWithExpiry(ctx, cooldownKey(username), "1", f.cfg.Cooldown); err != nil {
			return err
		}

		tok, err := f.claimURLToken(ctx, tx, username, confirmToken)
		if err != nil {
			return err
		}
		urlToken = tok

		if err := tx.SetWithExpiry(ctx, hashKey(username), hash, f.cfg.Lifespan); err != nil {
			return err
		}
		return tx.SetWithExpiry(ctx, saltKey(username), salt, f.cfg.Lifespan)
	})
	if err != nil {
		return Tokens{}, fmt.Errorf("issue confirmation: %w", err)
	}

	f.logger.Info(ctx, "confirmation issued", "username", username)
	return Tokens{ConfirmToken: confirmToken, URLToken: urlToken}, nil
}

// claimURLToken draws candidates until one is claimed without collision.
func (f *Flow) claimURLToken(ctx context.Context, tx tokenstore.Tx, username, confirmToken string) (string, error) {
	for range f.cfg.MaxAttempts {
		candidate, err := f.newToken()
		if err != nil {
			return "", err
		}
		if candidate == confirmToken {
			continue
		}

		ok, err := tx.SetIfAbsent(ctx, urlTokenKey(candidate), username)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}

		ok, err = tx.Expire(ctx, urlTokenKey(candidate), f.cfg.Lifespan)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}
	return "", common.ErrorTokenCollision
}

// CooldownActive reports whether a confirmation email was sent to username
// within the cooldown.
func (f *Flow) CooldownActive(ctx context.Context, username string) (bool, error) {
	_, found, err := f.store.Get(ctx, cooldownKey(username))
	if err != nil {
		return false, err
	}
	return found, nil
}

// Confirm redeems code for the cycle identified by urlToken.
func (f *Flow) Confirm(ctx context.Context, urlToken, code string, now time.Time) (Result, error) {
	username, found, err := f.store.Get(ctx, urlTokenKey(urlToken))
	if err != nil {
		return f.technical(ctx, "resolve url token", err)
	}
	if !found {
		f.clear(ctx, urlTokenKey(urlToken))
		return Expired, nil
	}

	u, _, err := f.lifecycle.LookupByUsername(ctx, username, now)
	if errors.Is(err, common.ErrorNotFound) {
		f.clear(ctx, urlTokenKey(urlToken), hashKey(username), saltKey(username), cooldownKey(username))
		return SignupExpired, nil
	}
	if err != nil {
		return f.technical(ctx, "load user", err)
	}

	if u.Disabled {
		return Disabled, nil
	}
	if accounts.IsConfirmed(u, now) {
		return AlreadyConfirmed, nil
	}

	entries, err := f.store.MultiGet(ctx, hashKey(username), saltKey(username))
	if err != nil {
		return f.technical(ctx, "load token material", err)
	}
	if !entries[0].Found || !entries[1].Found {
		f.clear(ctx, urlTokenKey(urlToken), hashKey(username), saltKey(username))
		return Expired, nil
	}

	match, err := f.hasher.VerifyPassword(code, entries[0].Value, entries[1].Value)
	if err != nil {
		return f.technical(ctx, "verify code", err)
	}
	if !match {
		f.logger.Info(ctx, "wrong confirmation code", "username", username)
		return WrongCode, nil
	}

	ok, err := f.lifecycle.Confirm(ctx, u, now)
	if err != nil {
		return f.technical(ctx, "persist confirmation", err)
	}
	if !ok {
		return AlreadyConfirmed, nil
	}

	// The url key stays until its TTL so that a repeated submission resolves
	// to AlreadyConfirmed rather than Expired.
	f.clear(ctx, hashKey(username), saltKey(username), cooldownKey(username))
	f.logger.Info(ctx, "signup confirmed", "user_id", u.ID)
	return Confirmed, nil
}

func (f *Flow) clear(ctx context.Context, keys ...string) {
	if err := f.store.Delete(ctx, keys...); err != nil {
		f.logger.Warn(ctx, "failed to clear confirmation keys", "error", err)
	}
}

func (f *Flow) technical(ctx context.Context, op string, err error) (Result, error) {
	f.logger.Error(ctx, "confirmation failed", "op", op, "error", err)
	return TechnicalError, fmt.Errorf("%s: %w", op, err)
}
