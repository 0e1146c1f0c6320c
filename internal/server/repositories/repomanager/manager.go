package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/audit"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/registry"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/roster"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/templates"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/watchlist"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Registry(db dbx.DBTX) registry.Repository
	Audit(db dbx.DBTX) audit.Repository
	Roster(db dbx.DBTX) roster.Repository
	Watchlist(db dbx.DBTX) watchlist.Repository
	Templates(db dbx.DBTX) templates.Repository
}
