package jobs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/models"
	"github.com/dmitrijs2005/preservd/internal/server/repositories/syncruns"
)

// Syncer performs one sync attempt. *preservation.Service implements it.
type Syncer interface {
	PerformSync(ctx context.Context, objectID string, force bool) (*models.SyncResult, error)
}

// Runner executes sync jobs under a Policy and records every attempt in
// the ledger.
type Runner struct {
	policy *Policy
	syncer Syncer
	runs   syncruns.Repository
	logger logging.Logger
	now    func() time.Time
}

func NewRunner(policy *Policy, syncer Syncer, runs syncruns.Repository, l logging.Logger) *Runner {
	return &Runner{policy: policy, syncer: syncer, runs: runs, logger: l.With("module", "runner"), now: time.Now}
}

// Sync preserves objectID, retrying per the policy.
func (r *Runner) Sync(ctx context.Context, objectID string, force bool) error {
	return r.policy.Execute(ctx, objectID, func(ctx context.Context, attempt int) error {
		started := r.now()
		res, err := r.syncer.PerformSync(ctx, objectID, force)
		r.record(ctx, objectID, attempt, started, res, err)
		return err
	})
}

func (r *Runner) record(ctx context.Context, objectID string, attempt int, started time.Time, res *models.SyncResult, syncErr error) {
	run := &models.SyncRun{
		ObjectID:   objectID,
		Attempt:    attempt,
		Status:     models.RunSucceeded,
		StartedAt:  started,
		FinishedAt: r.now(),
	}
	if res != nil {
		run.TransactionURI = res.TransactionURI
		run.Uploaded = len(res.Uploaded)
		run.Deleted = len(res.Deleted)
	}
	if syncErr != nil {
		run.Status = models.RunFailed
		run.Error = syncErr.Error()
	}
	if err := r.runs.Insert(context.WithoutCancel(ctx), run); err != nil {
		r.logger.Warn(ctx, "record sync run failed", common.ObjectIDKey, objectID, "error", err)
	}
}
