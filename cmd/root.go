// Package cmd defines and implements the CLI commands for the kanka-search
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/kanka-search/internal/app"
	"github.com/JakeFAU/kanka-search/internal/config"
	"github.com/JakeFAU/kanka-search/internal/logging"
	"github.com/JakeFAU/kanka-search/internal/pipeline"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() config.Config
	Service() *pipeline.Service
	RecordFailure(query string, err error) string
}

// newApp is the application factory. It's a variable so tests can swap in
// an app wired to fakes.
var newApp = func(ctx context.Context, cfgFile string) (App, error) {
	cfg, err := config.Load(config.Discover(cfgFile))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "kanka-search",
		Short: "Fuzzy search across every Kanka campaign you can see.",
		Long: `kanka-search keeps a local cache of the names of every entity, category
and campaign dashboard reachable with your Kanka token, refreshes it when it
goes stale, and ranks the cached names against a free-text query.`,
		SilenceUsage: true,

		// Builds the application before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				if cmd.Name() == searchCmdName {
					emitStartupFailure(cmd, args, err)
				}
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables use the KANKA_ prefix")

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newRefreshCmd())
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
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
