// Package cmd defines and implements the CLI commands for the jobdata executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobdata-fetcher/internal/app"
	"github.com/JakeFAU/jobdata-fetcher/internal/config"
	"github.com/JakeFAU/jobdata-fetcher/internal/logging"
	"github.com/JakeFAU/jobdata-fetcher/internal/report"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// annotationNeedsApp marks subcommands that run against the store and endpoint.
// cobra's built-in help and completion commands do not carry it.
const annotationNeedsApp = "jobdata/needs-app"

// App defines the application interface that commands will use.
// This allows us to inject a fake app during tests.
type App interface {
	Run(ctx context.Context) (report.Summary, error)
	Config() config.Config
	Logger() *zap.Logger
	RunID() string
	OpsAddr() string
	Close()
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.NewApp(ctx, cfg, logger)
}

// newLogger builds the process logger. It's a variable so tests can silence it.
var newLogger = func(cfg config.LoggingConfig) (*zap.Logger, error) {
	return logging.New(logging.Config{Development: cfg.Development, Level: cfg.Level, File: cfg.File})
}

// session carries what the root command builds so it can be torn down after any subcommand,
// including ones that fail.
type session struct {
	cfgFile string
	app     App
	logger  *zap.Logger
}

func (s *session) close() {
	if s.app != nil {
		s.app.Close()
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}

// newRootCmd creates and configures the root command.
func newRootCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobdata",
		Short: "Fetches job records from an HTTP API into a local store.",
		Long: `jobdata reads a list of job identifiers, requests each one from the
configured API with a fixed pool of workers and writes every record it gets
back into the job_data table.`,
		SilenceUsage: true,

		// Builds and injects the application before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := cmd.Annotations[annotationNeedsApp]; !ok {
				return nil
			}
			cfg, err := config.Load(s.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			s.logger = logger

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("failed to initialize application services", zap.Error(err))
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			s.app = appInstance

			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&s.cfgFile, "config", "", "config file (ini, yaml, toml or json); JOBDATA_* env vars override it")
	cmd.AddCommand(newFetchCmd())

	return cmd
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	s := &session{}
	defer s.close()

	cmd := newRootCmd(s)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
