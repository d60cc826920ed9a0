package preservation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

func TestResolver_EnsureContainerOnce(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, NamingFromConfig(testConfig()), logging.NewNop())
	ctx := context.Background()

	uri, err := store.BeginTransaction(ctx)
	require.NoError(t, err)
	tx := &Transaction{URI: uri, state: models.TxOpen}

	created, err := r.EnsureContainer(ctx, "uuid_1", tx)
	require.NoError(t, err)
	assert.True(t, created)

	// the memory store answers 409 to a second creation
	created, err = r.EnsureContainer(ctx, "uuid_1", tx)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestResolver_StoredFilesExcludesMetadata(t *testing.T) {
	store := newMemStore()
	store.committed["uuid_1"] = container{
		"B":                                      {},
		"A":                                      {},
		metaFile:                                 {},
		publicFile:                               {},
		"uuid_1.metadata.ora.v1.json":            {},
		"uuid_1.public_metadata.datacite.v3.xml": {},
	}
	r := NewResolver(store, NamingFromConfig(testConfig()), logging.NewNop())

	uri, err := store.BeginTransaction(context.Background())
	require.NoError(t, err)
	st, err := r.StoredFiles(context.Background(), "uuid_1", &Transaction{URI: uri, state: models.TxOpen})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, st.Binaries)
	assert.Equal(t, []string{"uuid_1.public_metadata.datacite.v3.xml", publicFile}, st.PublicMetadata)
}
