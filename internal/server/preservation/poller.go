package preservation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

var errStillPending = errors.New("commit still pending")

// CommitPoller waits for the store to confirm a requested commit.
//
// Status 410 Gone means the transaction no longer exists because it was
// committed. 204 No Content means it is still being processed. Anything
// else means the commit failed.
type CommitPoller struct {
	store    Store
	maxPolls int
	interval time.Duration
	logger   logging.Logger
}

// NewCommitPoller polls at most maxPolls times, interval apart.
func NewCommitPoller(store Store, maxPolls int, interval time.Duration, l logging.Logger) *CommitPoller {
	if maxPolls < 1 {
		maxPolls = 1
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &CommitPoller{store: store, maxPolls: maxPolls, interval: interval, logger: l}
}

// Await polls tx until it is Committed, Failed or TimedOut and leaves tx in
// that state. Cancelling ctx stops the wait and returns ctx.Err().
func (p *CommitPoller) Await(ctx context.Context, tx *Transaction) error {
	tx.state = models.TxPending

	polls := 0
	backoff := retry.WithMaxRetries(uint64(p.maxPolls-1), retry.NewConstant(p.interval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		polls++
		code, err := p.store.TransactionStatus(ctx, tx.URI)
		if err != nil {
			p.logger.Warn(ctx, "commit status unavailable", common.TransactionKey, tx.URI, "poll", polls, "error", err)
			return retry.RetryableError(errStillPending)
		}

		switch code {
		case http.StatusGone:
			return nil
		case http.StatusNoContent:
			p.logger.Debug(ctx, "commit pending", common.TransactionKey, tx.URI, "poll", polls)
			return retry.RetryableError(errStillPending)
		default:
			return &common.StoreError{Op: "GET", URL: tx.URI, Status: code, Kind: common.ErrCommitFailed}
		}
	})

	switch {
	case err == nil:
		tx.state = models.TxCommitted
		p.logger.Debug(ctx, "commit confirmed", common.TransactionKey, tx.URI, "polls", polls)
		return nil
	case errors.Is(err, errStillPending):
		tx.state = models.TxTimedOut
		return fmt.Errorf("transaction %s not committed after %d polls: %w", tx.URI, polls, common.ErrTransactionTimeout)
	case errors.Is(err, common.ErrCommitFailed):
		tx.state = models.TxFailed
		return fmt.Errorf("await commit: %w", err)
	default:
		return fmt.Errorf("await commit: %w", err)
	}
}
