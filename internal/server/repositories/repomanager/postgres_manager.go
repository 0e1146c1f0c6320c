// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/server/migrations"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/audit"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/registry"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/roster"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/templates"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/watchlist"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	auditSchema *audit.Schema
}

// Registry returns a registry.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Registry(db dbx.DBTX) registry.Repository {
	return registry.NewPostgresRepository(db)
}

// Audit returns an audit.Repository bound to the provided DBTX. All audit
// repositories share one lazily created table.
func (m *PostgresRepositoryManager) Audit(db dbx.DBTX) audit.Repository {
	return audit.NewPostgresRepository(db, m.auditSchema)
}

// Roster returns a roster.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Roster(db dbx.DBTX) roster.Repository {
	return roster.NewPostgresRepository(db)
}

// Watchlist returns a watchlist.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Watchlist(db dbx.DBTX) watchlist.Repository {
	return watchlist.NewPostgresRepository(db)
}

// Templates returns a templates.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Templates(db dbx.DBTX) templates.Repository {
	return templates.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &PostgresRepositoryManager{auditSchema: &audit.Schema{}}, nil
}
