// Package syncruns records every preservation attempt so failures can be
// traced by object id and transaction URI after the fact.
package syncruns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/dbx"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores run, assigning an id when it has none.
func (r *PostgresRepository) Insert(ctx context.Context, run *models.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	query := `INSERT INTO sync_runs (id, object_id, attempt, transaction_uri, status, uploaded, deleted, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.ObjectID, run.Attempt, run.TransactionURI, run.Status,
		run.Uploaded, run.Deleted, run.Error, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

// Latest returns the most recent attempt for objectID.
func (r *PostgresRepository) Latest(ctx context.Context, objectID string) (*models.SyncRun, error) {
	query := `SELECT id, object_id, attempt, transaction_uri, status, uploaded, deleted, error, started_at, finished_at
		FROM sync_runs WHERE object_id=$1 ORDER BY started_at DESC LIMIT 1`

	run := &models.SyncRun{}
	err := r.db.QueryRowContext(ctx, query, objectID).Scan(
		&run.ID, &run.ObjectID, &run.Attempt, &run.TransactionURI, &run.Status,
		&run.Uploaded, &run.Deleted, &run.Error, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select sync run: %w", err)
	}
	return run, nil
}
