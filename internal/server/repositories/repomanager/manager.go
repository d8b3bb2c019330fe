package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a database handle, which may
// be a *sql.DB or a *sql.Tx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
}
