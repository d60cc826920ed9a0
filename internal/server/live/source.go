// Package live adapts the live repository (PostgreSQL rows plus S3 content)
// to what the preservation engine reads.
package live

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/preservd/internal/server/models"
	"github.com/dmitrijs2005/preservd/internal/server/repositories/objects"
)

// ContentOpener streams stored objects by key. *contentstore.S3Store
// implements it.
type ContentOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
}

type Source struct {
	objects objects.Repository
	content ContentOpener
}

func NewSource(objects objects.Repository, content ContentOpener) *Source {
	return &Source{objects: objects, content: content}
}

// Load returns the current snapshot of object id.
func (s *Source) Load(ctx context.Context, id string) (*models.LiveObject, error) {
	return s.objects.Get(ctx, id)
}

// OpenContent streams the original bytes of binaryID from object storage.
// It returns common.ErrorNotFound when the binary has no stored content.
func (s *Source) OpenContent(ctx context.Context, objectID, binaryID string) (io.ReadCloser, int64, error) {
	key, err := s.objects.StorageKey(ctx, objectID, binaryID)
	if err != nil {
		return nil, 0, err
	}
	rc, size, err := s.content.Open(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("open content %s: %w", key, err)
	}
	return rc, size, nil
}
