// Package app initializes and holds the long-lived services of a fetch run, acting as a
// dependency injection container for the cmd package.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobdata-fetcher/internal/api"
	"github.com/JakeFAU/jobdata-fetcher/internal/clientpool"
	"github.com/JakeFAU/jobdata-fetcher/internal/config"
	"github.com/JakeFAU/jobdata-fetcher/internal/dispatcher"
	"github.com/JakeFAU/jobdata-fetcher/internal/id/uuid"
	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
	"github.com/JakeFAU/jobdata-fetcher/internal/metrics"
	"github.com/JakeFAU/jobdata-fetcher/internal/report"
	"github.com/JakeFAU/jobdata-fetcher/internal/source"
	"github.com/JakeFAU/jobdata-fetcher/internal/storage/memory"
	"github.com/JakeFAU/jobdata-fetcher/internal/storage/postgres"
	"github.com/JakeFAU/jobdata-fetcher/internal/storage/sqlite"
	"github.com/JakeFAU/jobdata-fetcher/internal/target"
	"github.com/JakeFAU/jobdata-fetcher/internal/worker"
)

const shutdownTimeout = 5 * time.Second

// App holds the shared services for one process: the store, the per-worker client pool,
// the reporters and the optional ops listener.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	runID      string
	sink       jobdata.Sink
	clients    *clientpool.Pool
	tally      *report.Tally
	dispatcher *dispatcher.Dispatcher
	server     *http.Server
	listener   net.Listener
}

// NewApp opens the store, creates the schema and wires the dispatcher. Any failure to reach
// the store is reported as jobdata.ErrStoreUnavailable before a single request is made.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID, err := uuid.New().NewID()
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("run_id", runID))

	sink, err := openSink(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := sink.InitSchema(ctx); err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("%w: %w", jobdata.ErrStoreUnavailable, err)
	}
	logger.Info("store ready", zap.String("driver", cfg.Store.Driver))

	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		runID:  runID,
		sink:   sink,
		clients: clientpool.New(clientpool.Config{
			Timeout: cfg.RequestTimeout(),
		}),
		tally: report.NewTally(),
	}
	reporter := report.Multi{report.NewLogReporter(logger.Named("records")), a.tally, recorder}
	a.dispatcher = dispatcher.New(
		a.clients,
		sink,
		reporter,
		recorder,
		worker.Config{UserAgent: cfg.HTTP.UserAgent},
		logger.Named("dispatcher"),
	)

	if cfg.Metrics.Addr != "" {
		if err := a.startServer(registry); err != nil {
			_ = sink.Close()
			return nil, err
		}
	}
	return a, nil
}

func openSink(ctx context.Context, cfg config.Config) (jobdata.Sink, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite, "":
		return sqlite.Open(ctx, cfg.DBName)
	case config.DriverPostgres:
		return postgres.Connect(ctx, cfg.Store.DSN)
	case config.DriverMemory:
		return memory.NewSink(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", jobdata.ErrStoreUnavailable, cfg.Store.Driver)
	}
}

func (a *App) startServer(registry *prometheus.Registry) error {
	ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Metrics.Addr, err)
	}
	srv := api.NewServer(a.runID, registry, a.tally.Summary, a.logger.Named("api"))
	a.listener = ln
	a.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("ops server failed", zap.Error(err))
		}
	}()
	return nil
}

// Logger returns the run-scoped logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// RunID returns the identifier stamped on every log line of this run.
func (a *App) RunID() string {
	return a.runID
}

// OpsAddr returns the bound address of the ops listener, or "" when it is disabled.
func (a *App) OpsAddr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Run reads the identifier file, builds the targets and dispatches them. Per-target failures
// never surface as an error; they are only visible in the returned summary and the logs.
func (a *App) Run(ctx context.Context) (report.Summary, error) {
	ids, err := source.ReadIdentifiers(a.cfg.FileName)
	if err != nil {
		return report.Summary{}, err
	}
	targets, err := target.Build(a.cfg.APIURL, ids)
	if err != nil {
		return report.Summary{}, err
	}
	a.logger.Info("run started",
		zap.String("api_url", a.cfg.APIURL),
		zap.String("file_name", a.cfg.FileName),
		zap.Int("targets", len(targets)),
	)

	a.dispatcher.Run(ctx, targets, a.cfg.Threads)

	summary := a.tally.Summary()
	a.logger.Info("run finished",
		zap.Int64("attempted", summary.Attempted),
		zap.Int64("persisted", summary.Persisted),
		zap.Int64("fetch_failures", summary.FetchFailures),
		zap.Int64("persist_failures", summary.PersistFailures),
	)
	return summary, nil
}

// Close releases the ops listener, idle connections and the store connection.
func (a *App) Close() {
	a.logger.Info("shutting down")
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("error shutting down ops server", zap.Error(err))
		}
	}
	a.clients.CloseIdle()
	if err := a.sink.Close(); err != nil {
		a.logger.Warn("error closing store", zap.Error(err))
	}
}
