package preservation

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/config"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

// Attempt stages, reported in SyncError.
const (
	StageConfigure = "configure"
	StageLoad      = "load"
	StageOpen      = "open"
	StageResolve   = "resolve"
	StageDiff      = "diff"
	StageMetadata  = "metadata"
	StageUpload    = "upload"
	StageDelete    = "delete"
	StageCommit    = "commit"
)

// SyncError is returned for every failed attempt. It unwraps to the cause,
// so errors.Is(err, common.ErrTransactionTimeout) and similar work.
type SyncError struct {
	ObjectID       string
	TransactionURI string
	Stage          string
	Err            error
}

func (e *SyncError) Error() string {
	if e.TransactionURI == "" {
		return fmt.Sprintf("sync %s failed at %s: %v", e.ObjectID, e.Stage, e.Err)
	}
	return fmt.Sprintf("sync %s (tx %s) failed at %s: %v", e.ObjectID, e.TransactionURI, e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Service runs sync attempts.
type Service struct {
	cfg        *config.Config
	live       LiveRepository
	tm         *TransactionManager
	resolver   *Resolver
	dispatcher *Dispatcher
	logger     logging.Logger
}

// NewService wires the engine from cfg. Sources default to DefaultSources
// when none are given.
func NewService(cfg *config.Config, store Store, live LiveRepository, l logging.Logger, sources ...SourceStrategy) *Service {
	l = l.With("module", "preservation")
	naming := NamingFromConfig(cfg)
	if len(sources) == 0 {
		sources = DefaultSources(cfg.LocalRoot, cfg.ReferenceRewrites, live)
	}
	poller := NewCommitPoller(store, cfg.CommitMaxRetries, cfg.CommitPollInterval, l)
	return &Service{
		cfg:        cfg,
		live:       live,
		tm:         NewTransactionManager(cfg, store, poller, l),
		resolver:   NewResolver(store, naming, l),
		dispatcher: NewDispatcher(store, naming, sources, l),
		logger:     l,
	}
}

// PerformSync brings the archival copy of objectID in line with the live
// object. On failure the returned result has Success false and the error
// is a *SyncError; nothing written during the attempt remains visible.
func (s *Service) PerformSync(ctx context.Context, objectID string, force bool) (*models.SyncResult, error) {
	result := &models.SyncResult{ObjectID: objectID}
	log := s.logger.With(common.ObjectIDKey, objectID)

	fail := func(stage, txURI string, err error) (*models.SyncResult, error) {
		result.TransactionURI = txURI
		result.Uploaded, result.Deleted = nil, nil
		log.Error(ctx, "sync failed", common.TransactionKey, txURI, "stage", stage, "error", err)
		return result, &SyncError{ObjectID: objectID, TransactionURI: txURI, Stage: stage, Err: err}
	}

	if err := s.cfg.CheckEnabled(); err != nil {
		return fail(StageConfigure, "", err)
	}

	obj, err := s.live.Load(ctx, objectID)
	if err != nil {
		return fail(StageLoad, "", err)
	}
	log.Debug(ctx, "sync started", "force", force, "binaries", len(obj.Binaries), "public", obj.Public)

	stage := StageOpen
	tx, err := s.tm.Run(ctx, func(ctx context.Context, tx *Transaction) error {
		stage = StageResolve
		created, err := s.resolver.EnsureContainer(ctx, objectID, tx)
		if err != nil {
			return err
		}
		stored := Stored{}
		if !created {
			if stored, err = s.resolver.StoredFiles(ctx, objectID, tx); err != nil {
				return err
			}
		}

		stage = StageDiff
		plan := Diff(obj.BinaryIDs(), stored.Binaries, force)
		log.Debug(ctx, "diff computed", common.TransactionKey, tx.URI,
			"to_upload", plan.ToUpload, "to_delete", plan.ToDelete)

		stage = StageMetadata
		if err := s.dispatcher.WriteMetadata(ctx, obj, stored, tx); err != nil {
			return err
		}

		stage = StageUpload
		for _, id := range plan.ToUpload {
			b, _ := obj.Binary(id)
			if err := s.dispatcher.Upload(ctx, obj, b, tx); err != nil {
				return err
			}
		}

		stage = StageDelete
		for _, id := range plan.ToDelete {
			if err := s.dispatcher.Delete(ctx, objectID, id, tx); err != nil {
				return err
			}
		}

		result.Uploaded = plan.ToUpload
		result.Deleted = plan.ToDelete
		stage = StageCommit
		return nil
	})

	txURI := ""
	if tx != nil {
		txURI = tx.URI
	}
	if err != nil {
		return fail(stage, txURI, err)
	}

	result.Success = true
	result.TransactionURI = txURI
	log.Info(ctx, "sync committed", common.TransactionKey, txURI,
		"uploaded", len(result.Uploaded), "deleted", len(result.Deleted))
	return result, nil
}
