package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/server/alerts"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []alerts.Alert
	err    error
}

func (f *fakeAlerter) Raise(_ context.Context, a alerts.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return f.err
}

type fakeRuns struct {
	mu   sync.Mutex
	runs []*models.SyncRun
	err  error
}

func (f *fakeRuns) Insert(_ context.Context, run *models.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return f.err
}

func (f *fakeRuns) Latest(context.Context, string) (*models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runs) == 0 {
		return nil, nil
	}
	return f.runs[len(f.runs)-1], nil
}

type finished struct {
	id, status, msg string
}

// fakeRequests mirrors the queue rules of the postgres repository: one
// pending row per object with merged force flags, and no claim while the
// object has a running row.
type fakeRequests struct {
	mu       sync.Mutex
	rows     []*models.SyncRequest
	finished []finished
	released []string
	claimErr error
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{}
}

func (f *fakeRequests) find(objectID, status string) *models.SyncRequest {
	for _, r := range f.rows {
		if r.ObjectID == objectID && r.Status == status {
			return r
		}
	}
	return nil
}

func (f *fakeRequests) upsert(objectID string, force bool) (*models.SyncRequest, bool) {
	if r := f.find(objectID, models.RequestPending); r != nil {
		r.ForceRefresh = r.ForceRefresh || force
		return r, false
	}
	n := 0
	for _, r := range f.rows {
		if r.ObjectID == objectID {
			n++
		}
	}
	id := "r-" + objectID
	if n > 0 {
		id = fmt.Sprintf("r-%s-%d", objectID, n+1)
	}
	r := &models.SyncRequest{ID: id, ObjectID: objectID, ForceRefresh: force, Status: models.RequestPending}
	f.rows = append(f.rows, r)
	return r, true
}

func (f *fakeRequests) Enqueue(_ context.Context, objectID string, force bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, inserted := f.upsert(objectID, force)
	return inserted, nil
}

func (f *fakeRequests) ClaimPending(_ context.Context, limit int) ([]*models.SyncRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	var claimed []*models.SyncRequest
	for _, r := range f.rows {
		if len(claimed) == limit {
			break
		}
		if r.Status != models.RequestPending || f.find(r.ObjectID, models.RequestRunning) != nil {
			continue
		}
		r.Status = models.RequestRunning
		claimed = append(claimed, &models.SyncRequest{ID: r.ID, ObjectID: r.ObjectID, ForceRefresh: r.ForceRefresh, Status: r.Status})
	}
	return claimed, nil
}

func (f *fakeRequests) ClaimObject(_ context.Context, objectID string, force bool) (*models.SyncRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.find(objectID, models.RequestRunning) != nil {
		return nil, common.ErrSyncRunning
	}
	r, _ := f.upsert(objectID, force)
	r.Status = models.RequestRunning
	return &models.SyncRequest{ID: r.ID, ObjectID: r.ObjectID, ForceRefresh: r.ForceRefresh, Status: r.Status}, nil
}

func (f *fakeRequests) byID(id string) *models.SyncRequest {
	for _, r := range f.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (f *fakeRequests) Release(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.byID(id)
	if r == nil || r.Status != models.RequestRunning {
		return common.ErrorNotFound
	}
	f.released = append(f.released, id)
	if p := f.find(r.ObjectID, models.RequestPending); p != nil {
		p.ForceRefresh = p.ForceRefresh || r.ForceRefresh
		r.Status = models.RequestMerged
		return nil
	}
	r.Status = models.RequestPending
	return nil
}

func (f *fakeRequests) Finish(_ context.Context, id, status, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.byID(id); r != nil {
		r.Status = status
	}
	f.finished = append(f.finished, finished{id, status, msg})
	return nil
}

func (f *fakeRequests) finishedSnapshot() []finished {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finished(nil), f.finished...)
}

func (f *fakeRequests) pending() []models.SyncRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SyncRequest
	for _, r := range f.rows {
		if r.Status == models.RequestPending {
			out = append(out, *r)
		}
	}
	return out
}
