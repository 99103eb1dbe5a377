// Package cmd defines and implements the CLI commands for the ranksync
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/app"
	"github.com/antyra/ranksync/internal/config"
	"github.com/antyra/ranksync/internal/orchestrator"
	"github.com/antyra/ranksync/internal/rank"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application surface that commands use. It exists so tests
// can inject a lightweight fake.
type App interface {
	Config() config.Config
	Logger() *zap.Logger
	Orchestrator() *orchestrator.Orchestrator
	RunStore() rank.RunStore
	Close(ctx context.Context)
}

// newApp is the application factory. It's a variable so tests can replace
// it with a fake factory.
var newApp = func(ctx context.Context, cfgPath string) (App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranksync",
		Short: "Keyword rank tracker that syncs search results into Google Sheets.",
		Long: `ranksync checks Google keyword rankings for the configured domains
through the Serper API and rewrites each domain's worksheet with fresh
rank labels, change highlights, and an optional CSV archive per run.`,

		// Runs before the subcommand's RunE; builds and injects the
		// application services.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		// Ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close(cmd.Context())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
