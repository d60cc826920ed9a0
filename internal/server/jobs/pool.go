package jobs

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

// SyncFunc runs one job to completion.
type SyncFunc func(ctx context.Context, objectID string, force bool) error

// Pool runs jobs for different objects concurrently, at most limit at a
// time, and never runs two jobs for the same object at once.
type Pool struct {
	ctx    context.Context
	g      *errgroup.Group
	run    SyncFunc
	onDone func(ctx context.Context, req *models.SyncRequest, err error)
	logger logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewPool creates a pool bound to ctx. onDone, if set, is called after each
// job with its final error.
func NewPool(ctx context.Context, limit int, run SyncFunc, onDone func(context.Context, *models.SyncRequest, error), l logging.Logger) *Pool {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	return &Pool{
		ctx:      gctx,
		g:        g,
		run:      run,
		onDone:   onDone,
		logger:   l.With("module", "pool"),
		inflight: map[string]struct{}{},
	}
}

// Submit schedules req. It reports false, without scheduling, when a job
// for the same object is already running. Submit blocks while the pool is
// full.
func (p *Pool) Submit(req *models.SyncRequest) bool {
	p.mu.Lock()
	if _, busy := p.inflight[req.ObjectID]; busy {
		p.mu.Unlock()
		p.logger.Debug(p.ctx, "object already in flight", common.ObjectIDKey, req.ObjectID)
		return false
	}
	p.inflight[req.ObjectID] = struct{}{}
	p.mu.Unlock()

	p.g.Go(func() error {
		defer func() {
			p.mu.Lock()
			delete(p.inflight, req.ObjectID)
			p.mu.Unlock()
		}()
		err := p.run(p.ctx, req.ObjectID, req.ForceRefresh)
		if p.onDone != nil {
			p.onDone(p.ctx, req, err)
		}
		// failures go to onDone so one job cannot cancel the others
		return nil
	})
	return true
}

// InFlight returns the number of running jobs.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

// Wait blocks until every submitted job has finished.
func (p *Pool) Wait() error {
	return p.g.Wait()
}
