// Package server wires the preservation daemon: configuration, the live
// repository database and object storage, the archival store client, the
// sync engine, the job layer and the health endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/preservd/internal/fedora"
	"github.com/dmitrijs2005/preservd/internal/logging"
	"github.com/dmitrijs2005/preservd/internal/server/alerts"
	"github.com/dmitrijs2005/preservd/internal/server/config"
	"github.com/dmitrijs2005/preservd/internal/server/contentstore"
	"github.com/dmitrijs2005/preservd/internal/server/jobs"
	"github.com/dmitrijs2005/preservd/internal/server/live"
	"github.com/dmitrijs2005/preservd/internal/server/preservation"
	"github.com/dmitrijs2005/preservd/internal/server/repositories/repomanager"

	gs "github.com/dmitrijs2005/preservd/internal/server/grpc"
)

var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	runner    *jobs.Runner
	trigger   *jobs.Trigger
	scheduler *jobs.Scheduler
	health    *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, parseLevel(c.LogLevel))

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	content, err := contentstore.NewS3Store(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("content store init error: %w", err)
	}

	store := newFedoraClient(c)
	source := live.NewSource(rm.Objects(db), content)
	service := preservation.NewService(c, store, source, logger)

	policy := jobs.NewPolicy(c.JobRetries, c.JobBackoff, newAlerter(c, logger), logger)
	requests := rm.Requests(db, c.RequestLease)

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		runner:    jobs.NewRunner(policy, service, rm.SyncRuns(db), logger),
		trigger:   jobs.NewTrigger(c.Enabled, requests, logger),
		scheduler: jobs.NewScheduler(requests, c.Concurrency, c.RequestPollInterval, logger),
		health:    gs.NewHealthServer(c.EndpointAddrGRPC, c.Enabled, logger),
	}, nil
}

func newFedoraClient(c *config.Config) *fedora.Client {
	opts := []fedora.Option{fedora.WithHTTPClient(&http.Client{Timeout: c.HTTPTimeout})}
	if c.FedoraUser != "" {
		opts = append(opts, fedora.WithBasicAuth(c.FedoraUser, c.FedoraPassword))
	}
	return fedora.NewClient(c.FedoraBaseURL(), opts...)
}

func newAlerter(c *config.Config, l logging.Logger) alerts.Alerter {
	if c.AlertGitLabURL == "" || c.AlertGitLabProject == "" {
		return alerts.NewLogAlerter(l)
	}
	a, err := alerts.NewGitLabAlerter(c.AlertGitLabURL, c.AlertGitLabProject, c.AlertGitLabToken)
	if err != nil {
		l.Error(context.Background(), "gitlab alerter unavailable, alerting to log", "error", err)
		return alerts.NewLogAlerter(l)
	}
	return a
}

func parseLevel(s string) slog.Level {
	if strings.EqualFold(s, "fatal") {
		return logging.LevelFatal
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run executes mode. In daemon mode it blocks until a signal arrives and
// running jobs have finished.
func (app *App) Run(ctx context.Context, mode Mode) error {
	defer app.db.Close()

	if mode.EnqueueObject != "" {
		return app.trigger.Request(ctx, mode.EnqueueObject, mode.Force)
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(cancelFunc)

	if mode.SyncObject != "" {
		return app.scheduler.RunOne(ctx, mode.SyncObject, mode.Force, app.runner.Sync)
	}

	app.logger.Info(ctx, "Starting app...", "enabled", app.config.Enabled)

	pool := jobs.NewPool(ctx, app.config.Concurrency, app.runner.Sync, app.scheduler.Finish, app.logger)

	var (
		wg      sync.WaitGroup
		runErr  error
		errOnce sync.Once
	)
	fail := func(err error) {
		if err == nil {
			return
		}
		errOnce.Do(func() { runErr = err })
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		fail(app.health.Run(ctx))
	}()
	go func() {
		defer wg.Done()
		if !app.config.Enabled {
			app.logger.Warn(ctx, "preservation disabled, not processing requests")
			<-ctx.Done()
			return
		}
		fail(app.scheduler.Run(ctx, pool))
	}()

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return runErr
}
