package requests

import (
	"context"

	"github.com/dmitrijs2005/preservd/internal/server/models"
)

// Repository is the queue of preservation triggers.
type Repository interface {
	Enqueue(ctx context.Context, objectID string, force bool) (bool, error)
	ClaimPending(ctx context.Context, limit int) ([]*models.SyncRequest, error)
	ClaimObject(ctx context.Context, objectID string, force bool) (*models.SyncRequest, error)
	Release(ctx context.Context, id string) error
	Finish(ctx context.Context, id, status, errMsg string) error
}
