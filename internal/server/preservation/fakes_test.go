package preservation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/server/config"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

type fakeFile struct {
	data     []byte
	mimeType string
}

type container map[string]fakeFile

type fakeTx struct {
	containers      map[string]container
	commitRequested bool
	closed          bool
}

// memStore is an archival store that stages every write in a per
// transaction copy and publishes it only when the commit is confirmed.
type memStore struct {
	mu        sync.Mutex
	committed map[string]container
	txs       map[string]*fakeTx
	seq       int

	// statuses are returned by TransactionStatus in order; once drained
	// the store reports 410 Gone.
	statuses  []int
	statusErr error
	commitErr error
	putErr    func(name string) error

	polls     int
	rollbacks int
	puts      []string
}

func newMemStore() *memStore {
	return &memStore{committed: map[string]container{}, txs: map[string]*fakeTx{}}
}

func copyContainers(src map[string]container) map[string]container {
	dst := make(map[string]container, len(src))
	for id, c := range src {
		cc := make(container, len(c))
		for k, v := range c {
			cc[k] = v
		}
		dst[id] = cc
	}
	return dst
}

func (s *memStore) tx(txURI string) (*fakeTx, error) {
	t, ok := s.txs[txURI]
	if !ok || t.closed || t.commitRequested {
		return nil, &common.StoreError{Op: "TX", URL: txURI, Status: http.StatusGone, Kind: common.ErrStoreRejected}
	}
	return t, nil
}

func (s *memStore) BeginTransaction(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	uri := fmt.Sprintf("http://fcrepo/rest/fcr:tx/%d", s.seq)
	s.txs[uri] = &fakeTx{containers: copyContainers(s.committed)}
	return uri, nil
}

func (s *memStore) CommitTransaction(_ context.Context, txURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tx(txURI)
	if err != nil {
		return err
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	t.commitRequested = true
	return nil
}

func (s *memStore) RollbackTransaction(_ context.Context, txURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollbacks++
	if t, ok := s.txs[txURI]; ok {
		t.closed = true
	}
	return nil
}

func (s *memStore) TransactionStatus(_ context.Context, txURI string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.statusErr != nil {
		return 0, s.statusErr
	}
	code := http.StatusGone
	if len(s.statuses) > 0 {
		code, s.statuses = s.statuses[0], s.statuses[1:]
	}
	t := s.txs[txURI]
	if code == http.StatusGone && t != nil && t.commitRequested && !t.closed {
		s.committed = t.containers
		t.closed = true
	}
	return code, nil
}

func (s *memStore) Exists(_ context.Context, id, txURI string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tx(txURI)
	if err != nil {
		return false, err
	}
	_, ok := t.containers[id]
	return ok, nil
}

func (s *memStore) CreateArchivalGroup(_ context.Context, id, txURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tx(txURI)
	if err != nil {
		return err
	}
	if _, ok := t.containers[id]; ok {
		return &common.StoreError{Op: "PUT", URL: id, Status: http.StatusConflict, Kind: common.ErrTransactionConflict}
	}
	t.containers[id] = container{}
	return nil
}

func (s *memStore) Children(_ context.Context, id, txURI string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tx(txURI)
	if err != nil {
		return nil, err
	}
	var names []string
	for name := range t.containers[id] {
		names = append(names, name)
	}
	return names, nil
}

func (s *memStore) PutBinary(_ context.Context, id, name string, body io.Reader, _ int64, mimeType, txURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tx(txURI)
	if err != nil {
		return err
	}
	c, ok := t.containers[id]
	if !ok {
		return &common.StoreError{Op: "PUT", URL: id, Status: http.StatusNotFound, Kind: common.ErrorNotFound}
	}
	if s.putErr != nil {
		if err := s.putErr(name); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	c[name] = fakeFile{data: data, mimeType: mimeType}
	s.puts = append(s.puts, name)
	return nil
}

func (s *memStore) DeleteBinary(_ context.Context, id, name, txURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tx(txURI)
	if err != nil {
		return err
	}
	if _, ok := t.containers[id][name]; !ok {
		return &common.StoreError{Op: "DELETE", URL: name, Status: http.StatusNotFound, Kind: common.ErrorNotFound}
	}
	delete(t.containers[id], name)
	return nil
}

// files lists the committed file names of container id.
func (s *memStore) files(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.committed[id] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *memStore) file(id, name string) (fakeFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.committed[id][name]
	return f, ok
}

type fakeLive struct {
	objects map[string]*models.LiveObject
	content map[string][]byte
	opened  []string
}

func newFakeLive() *fakeLive {
	return &fakeLive{objects: map[string]*models.LiveObject{}, content: map[string][]byte{}}
}

func (l *fakeLive) Load(_ context.Context, id string) (*models.LiveObject, error) {
	obj, ok := l.objects[id]
	if !ok {
		return nil, fmt.Errorf("live object %s: %w", id, common.ErrorNotFound)
	}
	return obj, nil
}

func (l *fakeLive) OpenContent(_ context.Context, _ string, binaryID string) (io.ReadCloser, int64, error) {
	data, ok := l.content[binaryID]
	if !ok {
		return nil, 0, common.ErrorNotFound
	}
	l.opened = append(l.opened, binaryID)
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// put registers an object whose binaries are served from live content.
func (l *fakeLive) put(id string, public bool, binaryIDs ...string) *models.LiveObject {
	obj := &models.LiveObject{
		ID:             id,
		Metadata:       []byte(`{"id":"` + id + `"}`),
		PublicMetadata: []byte(`<resource/>`),
		Public:         public,
	}
	for _, b := range binaryIDs {
		obj.Binaries = append(obj.Binaries, models.BinaryDescriptor{
			ID: b, Digest: "urn:sha1:" + b + "0000000000", MimeType: "application/pdf",
		})
		l.content[b] = []byte("content of " + b)
	}
	l.objects[id] = obj
	return obj
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Enabled = true
	cfg.LocalRoot = ""
	cfg.CommitPollInterval = time.Millisecond
	return cfg
}

const (
	metaFile   = "uuid_1.metadata.ora.v2.json"
	publicFile = "uuid_1.public_metadata.datacite.v4.xml"
)

func requireFiles(t *testing.T, s *memStore, id string, want ...string) {
	t.Helper()
	sort.Strings(want)
	got := s.files(id)
	if len(want) == 0 {
		require.Empty(t, got)
		return
	}
	require.Equal(t, want, got)
}
