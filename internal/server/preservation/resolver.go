package preservation

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
)

// Stored is what the archive currently holds for one object.
type Stored struct {
	// Binaries are the stored file ids, engine metadata files excluded.
	Binaries []string
	// PublicMetadata are the stored public metadata files, of any schema
	// or version.
	PublicMetadata []string
}

// Resolver locates and creates archival containers.
type Resolver struct {
	store  Store
	naming Naming
	logger logging.Logger
}

func NewResolver(store Store, naming Naming, l logging.Logger) *Resolver {
	return &Resolver{store: store, naming: naming, logger: l}
}

// EnsureContainer creates the archival group for id inside tx unless it
// already exists. Existence is checked within tx, so a retried attempt
// never tries to create the group twice.
func (r *Resolver) EnsureContainer(ctx context.Context, id string, tx *Transaction) (bool, error) {
	if err := tx.writable(); err != nil {
		return false, err
	}
	exists, err := r.store.Exists(ctx, id, tx.URI)
	if err != nil {
		return false, fmt.Errorf("check container: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := r.store.CreateArchivalGroup(ctx, id, tx.URI); err != nil {
		return false, fmt.Errorf("create container: %w", err)
	}
	r.logger.Debug(ctx, "archival group created", common.ObjectIDKey, id, common.TransactionKey, tx.URI)
	return true, nil
}

// StoredFiles lists what the container for id holds, as seen from tx.
func (r *Resolver) StoredFiles(ctx context.Context, id string, tx *Transaction) (Stored, error) {
	children, err := r.store.Children(ctx, id, tx.URI)
	if err != nil {
		return Stored{}, fmt.Errorf("list stored files: %w", err)
	}

	var st Stored
	for _, name := range children {
		if r.naming.IsPublicMetadata(id, name) {
			st.PublicMetadata = append(st.PublicMetadata, name)
		}
		if r.naming.IsInternal(id, name) {
			continue
		}
		st.Binaries = append(st.Binaries, name)
	}
	sort.Strings(st.Binaries)
	sort.Strings(st.PublicMetadata)
	return st, nil
}
