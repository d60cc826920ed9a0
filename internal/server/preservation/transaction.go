package preservation

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/config"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

// Transaction is one atomic write unit in the archival store. It belongs to
// exactly one attempt and is never reused once terminal.
type Transaction struct {
	URI        string
	state      models.TxState
	rolledBack bool
}

func (t *Transaction) State() models.TxState {
	return t.state
}

// writable returns an error unless writes may still be issued in t.
func (t *Transaction) writable() error {
	if t.state != models.TxOpen {
		return fmt.Errorf("transaction %s is %s", t.URI, t.state)
	}
	return nil
}

// TransactionManager owns the lifecycle of archival-store transactions.
type TransactionManager struct {
	cfg    *config.Config
	store  Store
	poller *CommitPoller
	logger logging.Logger
}

func NewTransactionManager(cfg *config.Config, store Store, poller *CommitPoller, l logging.Logger) *TransactionManager {
	return &TransactionManager{cfg: cfg, store: store, poller: poller, logger: l}
}

// Open begins a new transaction. It fails with common.ErrConfiguration,
// without contacting the store, when preservation is disabled.
func (m *TransactionManager) Open(ctx context.Context) (*Transaction, error) {
	if err := m.cfg.CheckEnabled(); err != nil {
		return nil, err
	}
	uri, err := m.store.BeginTransaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("open transaction: %w", err)
	}
	m.logger.Debug(ctx, "transaction opened", common.TransactionKey, uri)
	return &Transaction{URI: uri, state: models.TxOpen}, nil
}

// RequestCommit asks the store to commit tx. Only the first call per
// transaction reaches the store. Any failure marks tx Failed: a 410 from a
// transaction whose commit never arrived means expired, not committed.
func (m *TransactionManager) RequestCommit(ctx context.Context, tx *Transaction) error {
	if tx.state != models.TxOpen {
		return nil
	}
	tx.state = models.TxCommitRequested

	if err := m.store.CommitTransaction(ctx, tx.URI); err != nil {
		tx.state = models.TxFailed
		return fmt.Errorf("request commit: %w", err)
	}
	m.logger.Debug(ctx, "commit requested", common.TransactionKey, tx.URI)
	return nil
}

// Rollback discards tx. It is a no-op for committed or already rolled back
// transactions and ignores caller cancellation so cleanup always runs.
func (m *TransactionManager) Rollback(ctx context.Context, tx *Transaction) error {
	if tx == nil || tx.rolledBack || tx.state == models.TxCommitted {
		return nil
	}
	if !tx.state.Terminal() {
		tx.state = models.TxFailed
	}
	tx.rolledBack = true

	if err := m.store.RollbackTransaction(context.WithoutCancel(ctx), tx.URI); err != nil {
		m.logger.Error(ctx, "rollback failed", common.TransactionKey, tx.URI, "error", err)
		return fmt.Errorf("rollback: %w", err)
	}
	m.logger.Debug(ctx, "transaction rolled back", common.TransactionKey, tx.URI, "state", tx.state.String())
	return nil
}

// Run opens a transaction, calls fn with it, then requests commit and waits
// for confirmation. Every exit that does not end in Committed rolls the
// transaction back, panics included.
//
//	tx, err := m.Run(ctx, func(ctx context.Context, tx *Transaction) error {
//	    return store.PutBinary(ctx, id, name, r, n, mt, tx.URI)
//	})
func (m *TransactionManager) Run(ctx context.Context, fn func(ctx context.Context, tx *Transaction) error) (tx *Transaction, err error) {
	tx, err = m.Open(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = m.Rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			_ = m.Rollback(ctx, tx)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return tx, err
	}
	if err = m.RequestCommit(ctx, tx); err != nil {
		return tx, err
	}
	err = m.poller.Await(ctx, tx)
	return tx, err
}
