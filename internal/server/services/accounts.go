package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/common"
	"github.com/dmitrijs2005/timecaddy/internal/dbx"
	"github.com/dmitrijs2005/timecaddy/internal/logging"
	"github.com/dmitrijs2005/timecaddy/internal/server/accounts"
	"github.com/dmitrijs2005/timecaddy/internal/server/confirmation"
	"github.com/dmitrijs2005/timecaddy/internal/server/credentials"
	"github.com/dmitrijs2005/timecaddy/internal/server/models"
	"github.com/dmitrijs2005/timecaddy/internal/server/notify"
	"github.com/dmitrijs2005/timecaddy/internal/server/passwordreset"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/repomanager"
)

// SignupOutcome carries the result of Signup with its details.
type SignupOutcome struct {
	Result  SignupResult
	Reasons []string
	Field   string
	User    *models.User
}

// Dependencies are the collaborators of AccountService.
type Dependencies struct {
	DB            dbx.DBTX
	Repositories  repomanager.RepositoryManager
	Lifecycle     *accounts.Lifecycle
	Hasher        *credentials.Hasher
	Confirmations *confirmation.Flow
	Resets        *passwordreset.Flow
	Notifier      notify.Notifier
	Templates     notify.Templates
	Logger        logging.Logger
}

// AccountService runs the account flows end to end: lookup with lazy purge,
// the flow itself and the email that follows it.
type AccountService struct {
	db            dbx.DBTX
	repomanager   repomanager.RepositoryManager
	lifecycle     *accounts.Lifecycle
	hasher        *credentials.Hasher
	confirmations *confirmation.Flow
	resets        *passwordreset.Flow
	notifier      notify.Notifier
	templates     notify.Templates
	logger        logging.Logger
}

func NewAccountService(d Dependencies) *AccountService {
	return &AccountService{
		db:            d.DB,
		repomanager:   d.Repositories,
		lifecycle:     d.Lifecycle,
		hasher:        d.Hasher,
		confirmations: d.Confirmations,
		resets:        d.Resets,
		notifier:      d.Notifier,
		templates:     d.Templates,
		logger:        d.Logger.With("module", "services"),
	}
}

func (s *AccountService) Signup(ctx context.Context, in accounts.SignupInput, now time.Time) (SignupOutcome, error) {
	if err := s.lifecycle.PurgeIdentifiers(ctx, in.Username, in.Email, now); err != nil {
		return s.signupFailed(ctx, "purge stale signups", err)
	}

	if err := in.Validate(); err != nil {
		var ve *accounts.ValidationError
		if errors.As(err, &ve) {
			return SignupOutcome{Result: SignupInvalid, Reasons: ve.Reasons}, nil
		}
		return s.signupFailed(ctx, "validate", err)
	}

	hash, salt, err := s.hasher.HashPassword(in.Password, "")
	if err != nil {
		return s.signupFailed(ctx, "hash password", err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Username:        in.Username,
		Email:           in.Email,
		PasswordHash:    hash,
		PasswordSalt:    salt,
		SignupTime:      now,
		DefaultTimezone: in.Timezone,
	})
	var ce *common.ConstraintError
	if errors.As(err, &ce) {
		return SignupOutcome{Result: SignupConflict, Field: ce.Constraint}, nil
	}
	if err != nil {
		return s.signupFailed(ctx, "create user", err)
	}

	tokens, err := s.confirmations.Issue(ctx, user.Username)
	if err != nil {
		s.discardSignup(ctx, user)
		return s.signupFailed(ctx, "issue confirmation", err)
	}
	s.sendConfirmation(ctx, user, tokens)

	s.logger.Info(ctx, "signup created", "user_id", user.ID)
	return SignupOutcome{Result: SignupCreated, User: user}, nil
}

// discardSignup removes a row whose confirmation cycle could not be issued,
// so the same signup can be retried.
func (s *AccountService) discardSignup(ctx context.Context, user *models.User) {
	if _, err := s.repomanager.Users(s.db).DeleteUnconfirmed(ctx, user.ID); err != nil {
		s.logger.Error(ctx, "discard unconfirmed signup", "user_id", user.ID, "error", err)
	}
}

// Login decides whether a session may be established for identifier.
func (s *AccountService) Login(ctx context.Context, identifier, password string, now time.Time) (LoginResult, *models.User, error) {
	user, _, err := s.lifecycle.Lookup(ctx, identifier, now)
	if errors.Is(err, common.ErrorNotFound) {
		return LoginInvalidCredentials, nil, nil
	}
	if err != nil {
		return s.loginFailed(ctx, "lookup", err)
	}

	ok, err := s.hasher.VerifyPassword(password, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		return s.loginFailed(ctx, "verify password", err)
	}
	if !ok {
		return LoginInvalidCredentials, nil, nil
	}

	if user.Disabled {
		return LoginDisabled, nil, nil
	}
	if !accounts.IsConfirmed(user, now) {
		return LoginUnconfirmed, nil, nil
	}
	return LoginOK, user, nil
}

func (s *AccountService) ResendConfirmation(ctx context.Context, identifier string, now time.Time) (ResendResult, error) {
	user, _, err := s.lifecycle.Lookup(ctx, identifier, now)
	if errors.Is(err, common.ErrorNotFound) {
		return ResendUnknownUser, nil
	}
	if err != nil {
		return s.resendFailed(ctx, "lookup", err)
	}

	if accounts.IsConfirmed(user, now) {
		return ResendAlreadyConfirmed, nil
	}
	if user.Disabled {
		return ResendDisabled, nil
	}

	cooling, err := s.confirmations.CooldownActive(ctx, user.Username)
	if err != nil {
		return s.resendFailed(ctx, "check cooldown", err)
	}
	if cooling {
		return ResendTooSoon, nil
	}

	tokens, err := s.confirmations.Issue(ctx, user.Username)
	if err != nil {
		return s.resendFailed(ctx, "issue confirmation", err)
	}
	s.sendConfirmation(ctx, user, tokens)
	return ResendSent, nil
}

func (s *AccountService) ConfirmSignup(ctx context.Context, urlToken, code string, now time.Time) (confirmation.Result, error) {
	return s.confirmations.Confirm(ctx, urlToken, code, now)
}

func (s *AccountService) RequestPasswordReset(ctx context.Context, identifier string, now time.Time) (ResetRequestResult, error) {
	user, _, err := s.lifecycle.Lookup(ctx, identifier, now)
	if errors.Is(err, common.ErrorNotFound) {
		return ResetRequestUnknownUser, nil
	}
	if err != nil {
		s.logger.Error(ctx, "password reset request failed", "op", "lookup", "error", err)
		return ResetRequestTechnicalError, fmt.Errorf("lookup: %w", err)
	}

	res, tokens, err := s.resets.RequestReset(ctx, user, now)
	if err != nil {
		return ResetRequestTechnicalError, err
	}

	switch res {
	case passwordreset.Requested:
		subject, body := s.templates.PasswordReset(user.Username, tokens.URLToken, tokens.ConfirmToken, s.resets.Lifespan())
		s.deliver(ctx, user.Email, subject, body)
		return ResetRequestSent, nil
	case passwordreset.RequestDisabled:
		return ResetRequestDisabled, nil
	case passwordreset.RequestUnconfirmed:
		return ResetRequestUnconfirmed, nil
	case passwordreset.RateLimited:
		return ResetRequestRateLimited, nil
	}
	return ResetRequestTechnicalError, fmt.Errorf("unexpected reset request result %v", res)
}

func (s *AccountService) ResetPassword(ctx context.Context, urlToken, code, newPassword string, now time.Time) (passwordreset.Result, error) {
	return s.resets.ResetPassword(ctx, urlToken, code, newPassword, now)
}

func (s *AccountService) sendConfirmation(ctx context.Context, user *models.User, tokens confirmation.Tokens) {
	subject, body := s.templates.Confirmation(user.Username, tokens.URLToken, tokens.ConfirmToken, s.confirmations.Lifespan())
	s.deliver(ctx, user.Email, subject, body)
}

// deliver never fails the caller: token state is authoritative.
func (s *AccountService) deliver(ctx context.Context, to, subject, body string) {
	if err := s.notifier.Send(ctx, to, subject, body); err != nil {
		s.logger.Error(ctx, "email delivery failed", "to", to, "error", err)
	}
}

func (s *AccountService) signupFailed(ctx context.Context, op string, err error) (SignupOutcome, error) {
	s.logger.Error(ctx, "signup failed", "op", op, "error", err)
	return SignupOutcome{Result: SignupTechnicalError}, fmt.Errorf("%s: %w", op, err)
}

func (s *AccountService) loginFailed(ctx context.Context, op string, err error) (LoginResult, *models.User, error) {
	s.logger.Error(ctx, "login failed", "op", op, "error", err)
	return LoginTechnicalError, nil, fmt.Errorf("%s: %w", op, err)
}

func (s *AccountService) resendFailed(ctx context.Context, op string, err error) (ResendResult, error) {
	s.logger.Error(ctx, "resend confirmation failed", "op", op, "error", err)
	return ResendTechnicalError, fmt.Errorf("%s: %w", op, err)
}
