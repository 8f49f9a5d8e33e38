package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrTargetsFailed is returned by fetch when fail_on_errors is set and any target failed.
var ErrTargetsFailed = errors.New("targets failed")

// newFetchCmd creates the 'fetch' subcommand, which runs one full pass over the identifier file.
func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetches every identifier in file_name and stores the records",
		Long: `Reads file_name, requests {api_url}/{id} for every identifier with
'threads' workers and inserts each decoded record into the store. Failed
targets are logged and skipped; set fail_on_errors to turn them into a
non-zero exit status.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNeedsApp: "true"},
		RunE:        runFetchCommand,
	}
}

func runFetchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	logger := appInstance.Logger()
	if addr := appInstance.OpsAddr(); addr != "" {
		logger.Info("ops server listening", zap.String("addr", addr))
	}

	summary, err := appInstance.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run fetch: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(),
		"run_id=%s attempted=%d persisted=%d fetch_failures=%d persist_failures=%d\n",
		appInstance.RunID(), summary.Attempted, summary.Persisted, summary.FetchFailures, summary.PersistFailures)

	if appInstance.Config().FailOnErrors && summary.Failed() > 0 {
		logger.Warn("run had failed targets", zap.Int64("failed", summary.Failed()))
		return fmt.Errorf("%w: %d of %d", ErrTargetsFailed, summary.Failed(), summary.Attempted)
	}
	return nil
}
