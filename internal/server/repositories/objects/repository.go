package objects

import (
	"context"

	"github.com/dmitrijs2005/preservd/internal/server/models"
)

// Repository reads live objects exported by the live repository.
type Repository interface {
	Get(ctx context.Context, id string) (*models.LiveObject, error)
	StorageKey(ctx context.Context, objectID, binaryID string) (string, error)
}
