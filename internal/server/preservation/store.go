// Package preservation synchronizes live objects into the archival store.
//
// One attempt runs strictly in sequence inside a single store transaction:
// ensure the archival container exists, diff stored binaries against the
// live object, write metadata and binaries, delete orphans, request commit
// and poll until the store confirms. Any failure after the transaction is
// opened rolls it back before the error is returned.
package preservation

import (
	"context"
	"io"

	"github.com/dmitrijs2005/preservd/internal/server/models"
)

// Store is the subset of the archival store API the engine uses. It is
// implemented by *fedora.Client.
type Store interface {
	BeginTransaction(ctx context.Context) (string, error)
	CommitTransaction(ctx context.Context, txURI string) error
	RollbackTransaction(ctx context.Context, txURI string) error
	// TransactionStatus returns the raw status code of a transaction
	// status request.
	TransactionStatus(ctx context.Context, txURI string) (int, error)

	Exists(ctx context.Context, id, txURI string) (bool, error)
	CreateArchivalGroup(ctx context.Context, id, txURI string) error
	Children(ctx context.Context, id, txURI string) ([]string, error)

	PutBinary(ctx context.Context, id, name string, body io.Reader, size int64, mimeType, txURI string) error
	DeleteBinary(ctx context.Context, id, name, txURI string) error
}

// LiveRepository is the read side of the live repository.
type LiveRepository interface {
	Load(ctx context.Context, id string) (*models.LiveObject, error)
	// OpenContent streams a binary's raw bytes. size is -1 when unknown.
	OpenContent(ctx context.Context, objectID, binaryID string) (io.ReadCloser, int64, error)
}
