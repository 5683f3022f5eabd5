// Package cmd defines and implements the CLI commands for the sitesoft executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesoft/internal/app"
	"github.com/JakeFAU/sitesoft/internal/config"
	"github.com/JakeFAU/sitesoft/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can swap in an
// App assembled around an in-memory store.
var newApp = app.New

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "sitesoft",
		Short: "Load and store html, url, title of websites",
		Long: `sitesoft crawls a website from a root URL to a bounded depth with a fixed
number of concurrent workers, and stores the visited pages (url, title, text)
under the root URL for later retrieval.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Builds the App once flags are parsed and before the subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyFlagOverrides(cmd, &cfg)

			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			appInstance, ok := cmd.Context().Value(appKey).(*app.App)
			if !ok || appInstance == nil {
				return
			}
			if err := appInstance.Close(); err != nil {
				appInstance.Logger().Warn("close application services", zap.Error(err))
			}
			_ = appInstance.Logger().Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	cmd.AddCommand(newLoadCmd(), newGetCmd(), newServeCmd())
	return cmd
}

// applyFlagOverrides copies explicitly set per-invocation flags onto cfg so
// they reach the services built from it.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Lookup("fetch-timeout") != nil && flags.Changed("fetch-timeout") {
		if timeout, err := flags.GetDuration("fetch-timeout"); err == nil {
			cfg.Crawl.FetchTimeout = timeout
		}
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		if workers, err := flags.GetInt("workers"); err == nil && workers > 0 {
			cfg.Crawl.Workers = workers
		}
	}
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
