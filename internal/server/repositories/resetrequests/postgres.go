// Package resetrequests contains the PostgreSQL password reset ledger.
package resetrequests

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
)

const urlTokenConstraint = "password_reset_requests_password_reset_url_token_key"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) LockOwner(ctx context.Context, userID string) error {
	query :=
		`SELECT id FROM users
		 WHERE id = $1
		 FOR UPDATE
		 `

	var id string
	if err := r.db.GetContext(ctx, &id, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	query :=
		`SELECT COUNT(*) FROM password_reset_requests
		 WHERE user_id = $1 AND request_time >= $2
		 `

	var n int
	if err := r.db.GetContext(ctx, &n, query, userID, since); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) URLTokenExists(ctx context.Context, urlToken string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM password_reset_requests WHERE password_reset_url_token = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, urlToken); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) DeactivateAll(ctx context.Context, userID string) (int64, error) {
	query :=
		`UPDATE password_reset_requests SET active = FALSE
		 WHERE user_id = $1 AND active
		 `

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, req *models.PasswordResetRequest) (*models.PasswordResetRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO password_reset_requests (id, user_id, request_time, password_reset_token_hash,
		 password_reset_token_salt, password_reset_url_token, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query, req.ID, req.UserID, req.RequestTime,
		req.PasswordResetTokenHash, req.PasswordResetTokenSalt, req.PasswordResetURLToken, req.Active)
	if err != nil {
		if name, ok := dbx.UniqueViolation(err); ok {
			field := ""
			if name == urlTokenConstraint {
				field = "url_token"
			}
			return nil, &common.ConstraintError{Constraint: field, Err: err}
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return req, nil
}

func (r *PostgresRepository) GetByURLToken(ctx context.Context, urlToken string) (*models.PasswordResetRequest, error) {
	query :=
		`SELECT id, user_id, request_time, password_reset_token_hash, password_reset_token_salt,
		 password_reset_url_token, active
		 FROM password_reset_requests
		 WHERE password_reset_url_token = $1
		 `

	req := &models.PasswordResetRequest{}
	if err := r.db.GetContext(ctx, req, query, urlToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return req, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	query :=
		`UPDATE password_reset_requests SET active = FALSE
		 WHERE id = $1 AND active
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
