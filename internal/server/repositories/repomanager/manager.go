package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/preservd/internal/dbx"
	"github.com/dmitrijs2005/preservd/internal/server/repositories/objects"
	"github.com/dmitrijs2005/preservd/internal/server/repositories/requests"
	"github.com/dmitrijs2005/preservd/internal/server/repositories/syncruns"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Objects(db dbx.DBTX) objects.Repository
	SyncRuns(db dbx.DBTX) syncruns.Repository
	Requests(db *sql.DB, lease time.Duration) requests.Repository
}
