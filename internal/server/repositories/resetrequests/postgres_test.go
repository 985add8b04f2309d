package resetrequests

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/timecaddy/internal/common"
	"github.com/dmitrijs2005/timecaddy/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	qLock          = `(?s)^SELECT\s+id\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	qCount         = `(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+password_reset_requests\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+request_time\s*>=\s*\$2\s*$`
	qExists        = `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+password_reset_requests\s+WHERE\s+password_reset_url_token\s*=\s*\$1\)$`
	qDeactivateAll = `(?s)^UPDATE\s+password_reset_requests\s+SET\s+active\s*=\s*FALSE\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+active\s*$`
	qInsert        = `(?s)^INSERT\s+INTO\s+password_reset_requests\s*\(id,\s*user_id,.*active\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)\s*$`
	qByURLToken    = `(?s)^SELECT\s+id,\s*user_id,.*FROM\s+password_reset_requests\s+WHERE\s+password_reset_url_token\s*=\s*\$1\s*$`
	qDeactivate    = `(?s)^UPDATE\s+password_reset_requests\s+SET\s+active\s*=\s*FALSE\s+WHERE\s+id\s*=\s*\$1\s+AND\s+active\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(sqlx.NewDb(db, "pgx")), mock, db
}

func TestLockOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qLock).WithArgs("u-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))
	require.NoError(t, repo.LockOwner(context.Background(), "u-1"))

	mock.ExpectQuery(qLock).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	require.ErrorIs(t, repo.LockOwner(context.Background(), "ghost"), common.ErrorNotFound)
}

func TestCountSince(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(qCount).WithArgs("u-1", since).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountSince(context.Background(), "u-1", since)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCountSince_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qCount).WillReturnError(errors.New("db err"))

	_, err := repo.CountSince(context.Background(), "u-1", time.Now())
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestURLTokenExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qExists).WithArgs("tok").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := repo.URLTokenExists(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeactivateAll(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qDeactivateAll).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 2))
	n, err := repo.DeactivateAll(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(qInsert).
		WithArgs(sqlmock.AnyArg(), "u-1", at, "h", "s", "url", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), &models.PasswordResetRequest{
		UserID: "u-1", RequestTime: at, PasswordResetTokenHash: "h", PasswordResetTokenSalt: "s",
		PasswordResetURLToken: "url", Active: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
}

func TestCreate_URLTokenCollision(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInsert).WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: urlTokenConstraint})

	_, err := repo.Create(context.Background(), &models.PasswordResetRequest{ID: "r-1"})
	var ce *common.ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "url_token", ce.Constraint)
}

func TestGetByURLToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(qByURLToken).WithArgs("url").WillReturnRows(
		sqlmock.NewRows([]string{"id", "user_id", "request_time", "password_reset_token_hash",
			"password_reset_token_salt", "password_reset_url_token", "active"}).
			AddRow("r-1", "u-1", at, "h", "s", "url", true))

	got, err := repo.GetByURLToken(context.Background(), "url")
	require.NoError(t, err)
	assert.Equal(t, "r-1", got.ID)
	assert.True(t, got.Active)

	mock.ExpectQuery(qByURLToken).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByURLToken(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeactivate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qDeactivate).WithArgs("r-1").WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Deactivate(context.Background(), "r-1")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(qDeactivate).WithArgs("r-1").WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Deactivate(context.Background(), "r-1")
	require.NoError(t, err)
	assert.False(t, ok, "second deactivation is a no-op")
}
