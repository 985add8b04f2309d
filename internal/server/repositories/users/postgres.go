// Package users contains the PostgreSQL user repository.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/common"
	"github.com/dmitrijs2005/timecaddy/internal/dbx"
	"github.com/dmitrijs2005/timecaddy/internal/server/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, username, email, password_hash, password_salt, signup_time,
		 signup_confirmation_time, disabled, default_timezone`

var constraintFields = map[string]string{
	"users_username_key": "username",
	"users_email_key":    "email",
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, username, email, password_hash, password_salt, signup_time,
		 signup_confirmation_time, disabled, default_timezone)
		 VALUES (:id, :username, :email, :password_hash, :password_salt, :signup_time,
		 :signup_confirmation_time, :disabled, :default_timezone)
		 `

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, user); err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users
		 WHERE id = $1
		 `, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users
		 WHERE username = $1
		 `, username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users
		 WHERE email = $1
		 `, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	if err := r.db.GetContext(ctx, user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Confirm(ctx context.Context, id string, now time.Time) (bool, error) {
	query :=
		`UPDATE users SET signup_confirmation_time = $2
		 WHERE id = $1
		 AND (signup_confirmation_time IS NULL OR signup_confirmation_time > $2)
		 `

	return r.execAffected(ctx, query, id, now)
}

func (r *PostgresRepository) DeleteIfUnconfirmedStale(ctx context.Context, id string, now time.Time, window time.Duration) (bool, error) {
	query :=
		`DELETE FROM users
		 WHERE id = $1
		 AND (signup_confirmation_time IS NULL OR signup_confirmation_time > $2)
		 AND signup_time < $3
		 `

	return r.execAffected(ctx, query, id, now, now.Add(-window))
}

func (r *PostgresRepository) DeleteUnconfirmed(ctx context.Context, id string) (bool, error) {
	query :=
		`DELETE FROM users
		 WHERE id = $1
		 AND signup_confirmation_time IS NULL
		 `

	return r.execAffected(ctx, query, id)
}

func (r *PostgresRepository) DeleteAllUnconfirmedStale(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	query :=
		`DELETE FROM users
		 WHERE (signup_confirmation_time IS NULL OR signup_confirmation_time > $1)
		 AND signup_time < $2
		 `

	res, err := r.db.ExecContext(ctx, query, now, now.Add(-window))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) SetPassword(ctx context.Context, id, hash, salt string) error {
	query :=
		`UPDATE users SET password_hash = $2, password_salt = $3
		 WHERE id = $1
		 `

	return r.execOne(ctx, query, id, hash, salt)
}

func (r *PostgresRepository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	query :=
		`UPDATE users SET disabled = $2
		 WHERE id = $1
		 `

	return r.execOne(ctx, query, id, disabled)
}

func (r *PostgresRepository) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	ok, err := r.execAffected(ctx, query, args...)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func mapError(err error) error {
	if name, ok := dbx.UniqueViolation(err); ok {
		return &common.ConstraintError{Constraint: constraintFields[name], Err: err}
	}
	return fmt.Errorf("db error: %w", err)
}
