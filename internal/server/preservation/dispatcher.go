package preservation

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

// Dispatcher writes an object's files into an open transaction. Writes run
// one at a time; the store is not assumed safe for concurrent writers
// within a transaction.
type Dispatcher struct {
	store   Store
	naming  Naming
	sources []SourceStrategy
	logger  logging.Logger
}

func NewDispatcher(store Store, naming Naming, sources []SourceStrategy, l logging.Logger) *Dispatcher {
	return &Dispatcher{store: store, naming: naming, sources: sources, logger: l}
}

// WriteMetadata stores the metadata snapshot and, for public objects, the
// public metadata. Every other stored public metadata file, an older schema
// or version or one left from when the object was public, is removed.
func (d *Dispatcher) WriteMetadata(ctx context.Context, obj *models.LiveObject, stored Stored, tx *Transaction) error {
	if err := tx.writable(); err != nil {
		return err
	}

	name := d.naming.MetadataFile(obj.ID)
	if err := d.put(ctx, obj.ID, name, obj.Metadata, d.naming.MetadataMimeType(), tx); err != nil {
		return err
	}

	public := d.naming.PublicMetadataFile(obj.ID)
	if obj.Public {
		if err := d.put(ctx, obj.ID, public, obj.PublicMetadata, d.naming.PublicMimeType(), tx); err != nil {
			return err
		}
	}
	for _, stale := range stored.PublicMetadata {
		if obj.Public && stale == public {
			continue
		}
		if err := d.store.DeleteBinary(ctx, obj.ID, stale, tx.URI); err != nil {
			return fmt.Errorf("delete %s: %w", stale, err)
		}
		d.logger.Debug(ctx, "public metadata withdrawn", common.ObjectIDKey, obj.ID, common.TransactionKey, tx.URI, "file", stale)
	}
	return nil
}

func (d *Dispatcher) put(ctx context.Context, id, name string, data []byte, mimeType string, tx *Transaction) error {
	if err := d.store.PutBinary(ctx, id, name, bytes.NewReader(data), int64(len(data)), mimeType, tx.URI); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	d.logger.Debug(ctx, "metadata written", common.ObjectIDKey, id, common.TransactionKey, tx.URI, "file", name)
	return nil
}

// Upload writes binary b of obj, taking content from the first source
// that applies.
func (d *Dispatcher) Upload(ctx context.Context, obj *models.LiveObject, b models.BinaryDescriptor, tx *Transaction) error {
	if err := tx.writable(); err != nil {
		return err
	}

	rc, size, source, err := openSource(ctx, d.sources, obj.ID, b)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := d.store.PutBinary(ctx, obj.ID, b.ID, rc, size, b.MimeType, tx.URI); err != nil {
		return fmt.Errorf("upload %s: %w", b.ID, err)
	}
	d.logger.Debug(ctx, "binary uploaded", common.ObjectIDKey, obj.ID, common.TransactionKey, tx.URI,
		"binary", b.ID, "source", source, "size", size)
	return nil
}

// Delete removes the stored binary name from container id.
func (d *Dispatcher) Delete(ctx context.Context, id, name string, tx *Transaction) error {
	if err := tx.writable(); err != nil {
		return err
	}
	if err := d.store.DeleteBinary(ctx, id, name, tx.URI); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	d.logger.Debug(ctx, "binary deleted", common.ObjectIDKey, id, common.TransactionKey, tx.URI, "binary", name)
	return nil
}
