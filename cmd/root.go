package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/app"
	"github.com/startuplens/ycscout/internal/config"
	"github.com/startuplens/ycscout/internal/progress"
)

var (
	cfgFile string
	logDev  bool
)

// closeTimeout bounds the graceful shutdown of application services after a
// command finishes, so a stuck sink cannot hold the process open.
const closeTimeout = 15 * time.Second

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use.
// This allows us to inject a mock app during tests.
type App interface {
	Close(ctx context.Context)
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetHub() *progress.Hub
}

// newApp is the application factory. It's a variable so we can
// replace it with a mock factory in our tests.
var newApp func(ctx context.Context, cfg config.Config) (App, error) = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ycscout",
		Short: "Scrapes the Y Combinator startup directory into a founder dataset.",
		Long: `ycscout walks the public Y Combinator startup directory, collects company
listings, enriches each company with founder names from its detail page, and
searches for founder LinkedIn profiles. Results land in a CSV file and,
optionally, a Postgres table.`,
		SilenceUsage: true,

		// This hook runs BEFORE the subcommand's RunE and is the place
		// where configuration is loaded and the application is built.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("log-dev") {
				cfg.Logging.Development = logDev
			}

			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}

			// Store the app instance in the context for subcommands to use.
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// This hook ensures services are shut down gracefully. A fresh
		// bounded context lets queued progress events flush even after an
		// interrupted run.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				defer cancel()
				appInstance.Close(ctx)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	cmd.PersistentFlags().BoolVar(&logDev, "log-dev", false, "force human readable development logs")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newProbeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
