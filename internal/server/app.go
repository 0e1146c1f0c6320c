// Package server initializes and runs the memvault server: the intake gRPC
// endpoint, the scheduled pass runner and the metrics endpoint.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/access"
	"github.com/dmitrijs2005/memvault/internal/server/audit"
	"github.com/dmitrijs2005/memvault/internal/server/config"
	"github.com/dmitrijs2005/memvault/internal/server/ledger"
	"github.com/dmitrijs2005/memvault/internal/server/lock"
	"github.com/dmitrijs2005/memvault/internal/server/metrics"
	"github.com/dmitrijs2005/memvault/internal/server/notify"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/registry"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/memvault/internal/server/scheduler"
	"github.com/dmitrijs2005/memvault/internal/server/services"
	"github.com/dmitrijs2005/memvault/internal/server/storage"
	"github.com/dmitrijs2005/memvault/internal/server/storage/memstore"
	"github.com/dmitrijs2005/memvault/internal/server/storage/s3store"

	gs "github.com/dmitrijs2005/memvault/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
	grpc     *gs.GRPCServer
	runner   *scheduler.Runner
}

func newLogger(w io.Writer, format string) logging.Logger {
	if format == config.LogFormatConsole {
		return logging.NewConsoleLogger(w, "memvault")
	}
	return logging.NewJSONLogger(w, slog.LevelInfo)
}

func newObjectStorage(ctx context.Context, c *config.Config) (storage.ObjectStorage, error) {
	var store storage.ObjectStorage
	switch c.StorageBackend {
	case config.BackendMemory:
		store = memstore.New()
	default:
		s3, err := s3store.New(ctx, s3store.Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
			InboxPrefix:  c.InboxPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		store = s3
	}

	if err := store.EnsureContainer(ctx, c.RootContainer, "", c.RootContainerName); err != nil {
		return nil, fmt.Errorf("root container %s: %w", c.RootContainer, err)
	}
	return store, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := newLogger(os.Stdout, c.LogFormat)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	app, err := build(ctx, c, logger, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB) (*App, error) {
	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	if err := registry.VerifySchema(ctx, db); err != nil {
		return nil, fmt.Errorf("registry schema: %w", err)
	}

	store, err := newObjectStorage(ctx, c)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mailer := notify.NewLogMailer(logger)
	alerter := notify.NewAlerter(mailer, c.OperatorEmail, logger)
	sender := notify.NewTemplateSender(rm.Templates(db), mailer, logger)
	trail := audit.NewTrail(rm.Audit(db), logger)
	lk := lock.NewExclusive(c.LockWait)

	auditor := access.NewAuditor(store, trail, access.Options{IgnoredIdentities: c.IgnoredIdentities}, logger)
	reconciler := ledger.NewReconciler(store, c.HeavyStorageBytes)
	sched := scheduler.New(db, rm, store, auditor, reconciler, trail, lk, m, scheduler.Options{
		RootContainer: c.RootContainer,
		Budget:        c.PassBudget,
		Grace:         scheduler.DefaultGrace,
		WriteTimeout:  scheduler.DefaultWriteTimeout,
	}, logger)
	runner := scheduler.NewRunner(sched, c.PassInterval, logger)

	syncer := ledger.NewSyncer(store, trail, m, logger)
	intake := services.NewIntakeService(db, rm, syncer, trail, sender, alerter, lk, m, logger)
	intake.OnProcessed(runner.Trigger)

	grpcServer := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, gs.Services{
		Intake: intake,
		Passer: sched,
		Units:  services.NewUnitService(db, rm, logger),
		Seeder: services.NewLedgerSeeder(db, rm, lk, logger),
		Audit:  trail,
	}, c.SecretKey)

	return &App{config: c, logger: logger, db: db, registry: reg, grpc: grpcServer, runner: runner}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(app.registry))
	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		_ = app.runner.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
