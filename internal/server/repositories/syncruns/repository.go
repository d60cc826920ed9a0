package syncruns

import (
	"context"

	"github.com/dmitrijs2005/preservd/internal/server/models"
)

// Repository is the ledger of sync attempts.
type Repository interface {
	Insert(ctx context.Context, run *models.SyncRun) error
	Latest(ctx context.Context, objectID string) (*models.SyncRun, error)
}
