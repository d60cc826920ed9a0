// Package jobs runs preservation attempts as retried jobs: a retry and
// escalation policy, a bounded worker pool, and the loop that feeds the
// pool from the request queue.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/alerts"
)

// Policy retries a failed job a fixed number of times with exponential
// backoff and raises an alert once retries are exhausted. Configuration
// errors are neither retried nor alerted.
type Policy struct {
	retries uint64
	backoff time.Duration
	alerter alerts.Alerter
	logger  logging.Logger
}

func NewPolicy(retries int, backoff time.Duration, alerter alerts.Alerter, l logging.Logger) *Policy {
	if retries < 0 {
		retries = 0
	}
	if backoff <= 0 {
		backoff = time.Millisecond
	}
	return &Policy{retries: uint64(retries), backoff: backoff, alerter: alerter, logger: l.With("module", "jobs")}
}

// Execute runs fn until it succeeds, fails fatally, or retries run out.
// attempt starts at 1.
func (p *Policy) Execute(ctx context.Context, objectID string, fn func(ctx context.Context, attempt int) error) error {
	log := p.logger.With(common.ObjectIDKey, objectID)
	attempt := 0

	b := retry.WithMaxRetries(p.retries, retry.NewExponential(p.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx, attempt)
		switch common.Classify(err) {
		case common.ClassOK:
			return nil
		case common.ClassFatal:
			return err
		default:
			log.Warn(ctx, "attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
	})

	switch {
	case err == nil:
		return nil
	case common.Classify(err) == common.ClassFatal:
		log.Error(ctx, "not preserved", "error", err)
		return err
	case ctx.Err() != nil:
		log.Warn(ctx, "job cancelled", "attempt", attempt)
		return err
	}

	retries := attempt - 1
	log.Fatal(ctx, "sync failed, retries exhausted", "attempts", attempt, "error", err)
	alert := alerts.Alert{
		Title:  fmt.Sprintf("Preservation failure: %s - sync failed after %d retries", objectID, retries),
		Body:   fmt.Sprintf("Object %s could not be preserved after %d attempts.\n\nLast error: %v", objectID, attempt, err),
		Labels: []string{"preservation"},
	}
	if aerr := p.alerter.Raise(context.WithoutCancel(ctx), alert); aerr != nil {
		log.Error(ctx, "raise alert failed", "error", aerr)
	}
	return fmt.Errorf("object %s: retries exhausted: %w", objectID, err)
}
