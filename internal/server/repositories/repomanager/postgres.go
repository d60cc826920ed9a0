// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/preservd/internal/dbx"
	"github.com/dmitrijs2005/preservd/internal/server/migrations"
	"github.com/dmitrijs2005/preservd/internal/server/repositories/objects"
	"github.com/dmitrijs2005/preservd/internal/server/repositories/requests"
	"github.com/dmitrijs2005/preservd/internal/server/repositories/syncruns"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories and
// exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Objects returns the live object view bound to db.
func (m *PostgresRepositoryManager) Objects(db dbx.DBTX) objects.Repository {
	return objects.NewPostgresRepository(db)
}

// SyncRuns returns the attempt ledger bound to db.
func (m *PostgresRepositoryManager) SyncRuns(db dbx.DBTX) syncruns.Repository {
	return syncruns.NewPostgresRepository(db)
}

// Requests returns the trigger queue. It takes the pool rather than a DBTX
// because claiming opens its own transaction. Running requests older than
// lease are presumed orphaned and requeued.
func (m *PostgresRepositoryManager) Requests(db *sql.DB, lease time.Duration) requests.Repository {
	return requests.NewPostgresRepository(db, lease)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
