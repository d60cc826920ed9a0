package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/models"
	"github.com/dmitrijs2005/preservd/internal/server/repositories/requests"
)

// Trigger is the entry point for asking that an object be preserved.
type Trigger struct {
	enabled  bool
	requests requests.Repository
	logger   logging.Logger
}

func NewTrigger(enabled bool, reqs requests.Repository, l logging.Logger) *Trigger {
	return &Trigger{enabled: enabled, requests: reqs, logger: l.With("module", "trigger")}
}

// Request queues objectID for preservation. When preservation is disabled
// nothing is queued and the object is logged as not preserved.
func (t *Trigger) Request(ctx context.Context, objectID string, force bool) error {
	if !t.enabled {
		t.logger.Info(ctx, "not preserved: preservation disabled", common.ObjectIDKey, objectID)
		return nil
	}
	queued, err := t.requests.Enqueue(ctx, objectID, force)
	if err != nil {
		return err
	}
	if !queued {
		t.logger.Info(ctx, "sync already queued, request merged", common.ObjectIDKey, objectID, "force", force)
		return nil
	}
	t.logger.Info(ctx, "sync queued", common.ObjectIDKey, objectID, "force", force)
	return nil
}

// Scheduler moves queued requests into the pool.
type Scheduler struct {
	requests requests.Repository
	batch    int
	interval time.Duration
	logger   logging.Logger
}

func NewScheduler(reqs requests.Repository, batch int, interval time.Duration, l logging.Logger) *Scheduler {
	if batch < 1 {
		batch = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{requests: reqs, batch: batch, interval: interval, logger: l.With("module", "scheduler")}
}

// Finish records a job outcome on its request. It has the shape Pool
// expects for onDone. A job cut short by cancellation has no outcome, so
// its request goes back to the queue.
func (s *Scheduler) Finish(ctx context.Context, req *models.SyncRequest, jobErr error) {
	if jobErr != nil && (ctx.Err() != nil || errors.Is(jobErr, context.Canceled)) {
		s.release(ctx, req, "job interrupted")
		return
	}

	status, msg := models.RequestDone, ""
	if jobErr != nil {
		status, msg = models.RequestFailed, jobErr.Error()
	}
	if err := s.requests.Finish(context.WithoutCancel(ctx), req.ID, status, msg); err != nil {
		s.logger.Error(ctx, "finish request failed", common.ObjectIDKey, req.ObjectID, "request", req.ID, "error", err)
	}
}

// Tick claims one batch of pending requests and submits them to pool. It
// returns the number submitted.
func (s *Scheduler) Tick(ctx context.Context, pool *Pool) int {
	reqs, err := s.requests.ClaimPending(ctx, s.batch)
	if err != nil {
		s.logger.Error(ctx, "claim requests failed", "error", err)
		return 0
	}

	n := 0
	for _, req := range reqs {
		if pool.Submit(req) {
			n++
			continue
		}
		s.release(ctx, req, "object in flight")
	}
	return n
}

// RunOne claims objectID through the queue and runs it in the caller's
// goroutine. It fails with common.ErrSyncRunning while the daemon or another
// process is syncing the same object.
func (s *Scheduler) RunOne(ctx context.Context, objectID string, force bool, run SyncFunc) error {
	req, err := s.requests.ClaimObject(ctx, objectID, force)
	if err != nil {
		return err
	}
	err = run(ctx, req.ObjectID, req.ForceRefresh)
	s.Finish(ctx, req, err)
	return err
}

func (s *Scheduler) release(ctx context.Context, req *models.SyncRequest, reason string) {
	if err := s.requests.Release(context.WithoutCancel(ctx), req.ID); err != nil {
		s.logger.Error(ctx, "release request failed", common.ObjectIDKey, req.ObjectID, "request", req.ID, "error", err)
		return
	}
	s.logger.Info(ctx, "request requeued", common.ObjectIDKey, req.ObjectID, "request", req.ID, "reason", reason)
}

// Run ticks every interval until ctx is done, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context, pool *Pool) error {
	s.logger.Info(ctx, "scheduler started", "interval", s.interval.String(), "batch", s.batch)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		s.Tick(ctx, pool)
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "scheduler stopping, waiting for running jobs", "in_flight", pool.InFlight())
			return pool.Wait()
		case <-t.C:
		}
	}
}
