// Package requests stores queued preservation triggers. At most one request
// per object is pending at a time, and a pending request is not claimed
// while another request for the same object is running.
package requests

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/dbx"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

const (
	upsertQuery = `INSERT INTO sync_requests (id, object_id, force_refresh, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (object_id) WHERE status = 'pending'
		DO UPDATE SET force_refresh = sync_requests.force_refresh OR EXCLUDED.force_refresh, updated_at = now()
		RETURNING id, force_refresh, created_at, (xmax = 0) AS inserted`

	// folds the force flag of the matched running rows into the pending
	// request of the same object, if there is one
	foldQuery = `UPDATE sync_requests p
		SET force_refresh = p.force_refresh OR r.force_refresh, updated_at = now()
		FROM sync_requests r
		WHERE p.status = 'pending' AND p.object_id = r.object_id AND r.status = 'running' AND %s`

	// puts the matched running rows back to pending, or marks them merged
	// when a pending request for the same object already exists
	requeueQuery = `UPDATE sync_requests r
		SET status = CASE WHEN EXISTS (
				SELECT 1 FROM sync_requests p WHERE p.object_id = r.object_id AND p.status = 'pending'
			) THEN 'merged' ELSE 'pending' END,
			error = $1, claimed_at = NULL, updated_at = now()
		WHERE r.status = 'running' AND %s`

	byID      = `r.id = $%d`
	byExpired = `r.claimed_at < now() - make_interval(secs => $%d)`
)

// PostgresRepository needs the *sql.DB itself because claiming runs in its
// own transaction.
type PostgresRepository struct {
	db    *sql.DB
	lease time.Duration
}

// NewPostgresRepository returns a repository that reclaims running requests
// whose claim is older than lease. A non-positive lease disables reclaiming.
func NewPostgresRepository(db *sql.DB, lease time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, lease: lease}
}

func upsert(ctx context.Context, db dbx.DBTX, objectID string, force bool) (*models.SyncRequest, bool, error) {
	req := &models.SyncRequest{ObjectID: objectID, Status: models.RequestPending}
	var inserted bool

	err := db.QueryRowContext(ctx, upsertQuery, uuid.NewString(), objectID, force, models.RequestPending).
		Scan(&req.ID, &req.ForceRefresh, &req.CreatedAt, &inserted)
	if err != nil {
		return nil, false, err
	}
	return req, inserted, nil
}

// Enqueue adds a pending request for objectID. When one is already pending
// the force flags are merged and Enqueue reports false.
func (r *PostgresRepository) Enqueue(ctx context.Context, objectID string, force bool) (bool, error) {
	_, inserted, err := upsert(ctx, r.db, objectID, force)
	if err != nil {
		return false, fmt.Errorf("failed to enqueue sync request: %w", err)
	}
	return inserted, nil
}

func requeue(ctx context.Context, tx dbx.DBTX, cond, reason string, arg any) (int64, error) {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(foldQuery, fmt.Sprintf(cond, 1)), arg); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, fmt.Sprintf(requeueQuery, fmt.Sprintf(cond, 2)), reason, arg)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) reclaimExpired(ctx context.Context, tx dbx.DBTX) error {
	if r.lease <= 0 {
		return nil
	}
	if _, err := requeue(ctx, tx, byExpired, "lease expired", r.lease.Seconds()); err != nil {
		return fmt.Errorf("failed to reclaim sync requests: %w", err)
	}
	return nil
}

func markRunning(ctx context.Context, tx dbx.DBTX, req *models.SyncRequest) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE sync_requests SET status=$1, claimed_at=now(), updated_at=now() WHERE id=$2`,
		models.RequestRunning, req.ID); err != nil {
		return fmt.Errorf("failed to claim sync request %s: %w", req.ID, err)
	}
	req.Status = models.RequestRunning
	return nil
}

// ClaimPending moves up to limit of the oldest pending requests to running
// and returns them. Requests whose lease expired are requeued first. Rows
// locked by another claimer, and objects with a running request, are
// skipped.
func (r *PostgresRepository) ClaimPending(ctx context.Context, limit int) ([]*models.SyncRequest, error) {
	return dbx.InTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) ([]*models.SyncRequest, error) {
		if err := r.reclaimExpired(ctx, tx); err != nil {
			return nil, err
		}

		query := `SELECT id, object_id, force_refresh, created_at FROM sync_requests s
			WHERE status=$1 AND NOT EXISTS (
				SELECT 1 FROM sync_requests r WHERE r.object_id = s.object_id AND r.status = 'running'
			)
			ORDER BY created_at LIMIT $2 FOR UPDATE SKIP LOCKED`

		rows, err := tx.QueryContext(ctx, query, models.RequestPending, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to select sync requests: %w", err)
		}

		var claimed []*models.SyncRequest
		for rows.Next() {
			req := &models.SyncRequest{}
			if err := rows.Scan(&req.ID, &req.ObjectID, &req.ForceRefresh, &req.CreatedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan sync request: %w", err)
			}
			claimed = append(claimed, req)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read sync requests: %w", err)
		}
		rows.Close()

		for _, req := range claimed {
			if err := markRunning(ctx, tx, req); err != nil {
				return nil, err
			}
		}
		return claimed, nil
	})
}

// ClaimObject queues objectID, merging with a pending request if any, and
// claims it at once. It fails with common.ErrSyncRunning, leaving the queue
// unchanged, while another request for the object is running.
func (r *PostgresRepository) ClaimObject(ctx context.Context, objectID string, force bool) (*models.SyncRequest, error) {
	return dbx.InTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.SyncRequest, error) {
		if err := r.reclaimExpired(ctx, tx); err != nil {
			return nil, err
		}

		req, _, err := upsert(ctx, tx, objectID, force)
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue sync request: %w", err)
		}

		var running bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM sync_requests WHERE object_id=$1 AND status=$2)`,
			objectID, models.RequestRunning).Scan(&running); err != nil {
			return nil, fmt.Errorf("failed to check running sync requests: %w", err)
		}
		if running {
			return nil, fmt.Errorf("object %s: %w", objectID, common.ErrSyncRunning)
		}

		if err := markRunning(ctx, tx, req); err != nil {
			return nil, err
		}
		return req, nil
	})
}

// Release hands a running request back to the queue without recording an
// outcome. If the object was triggered again meanwhile, the request is
// merged into that pending one instead.
func (r *PostgresRepository) Release(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := requeue(ctx, tx, byID, "released", id)
		if err != nil {
			return fmt.Errorf("failed to release sync request: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("running sync request %s: %w", id, common.ErrorNotFound)
		}
		return nil
	})
}

// Finish records the terminal status of a request.
func (r *PostgresRepository) Finish(ctx context.Context, id, status, errMsg string) error {
	query := `UPDATE sync_requests SET status=$1, error=$2, updated_at=now() WHERE id=$3`

	res, err := r.db.ExecContext(ctx, query, status, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to finish sync request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sync request %s: %w", id, common.ErrorNotFound)
	}
	return nil
}
