package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/timecaddy/internal/dbx"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/resetrequests"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so that callers can
// choose between the pool and a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	ResetRequests(db dbx.DBTX) resetrequests.Repository
}
