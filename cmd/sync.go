package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/rank"
)

// newSyncCmd creates the command that runs one sync and exits.
func newSyncCmd() *cobra.Command {
	var domains []string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one rank sync and exit",
		Long: `Checks rankings for every configured keyword and rewrites the tracked
worksheets once. Use --domain to restrict the run to a subset of the
configured domains.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSyncCommand(cmd, domains)
		},
	}

	cmd.Flags().StringSliceVar(&domains, "domain", nil, "limit the run to these domains (repeatable)")

	return cmd
}

func runSyncCommand(cmd *cobra.Command, domains []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	summary, err := appInstance.Orchestrator().Sync(cmd.Context(), rank.TriggerCLI, domains)
	if err != nil {
		return fmt.Errorf("run sync: %w", err)
	}

	// Per-domain failures are part of a finished run, not a command error.
	for _, domain := range summary.Domains {
		if domain.Err != nil {
			logger.Warn("domain sync failed",
				zap.String("domain", domain.Domain),
				zap.Error(domain.Err),
			)
		}
	}

	logger.Info("sync finished",
		zap.String("run_id", summary.ID),
		zap.String("status", string(summary.Status)),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Finished.Sub(summary.Started)),
	)

	return nil
}
