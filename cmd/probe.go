package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/startuplens/ycscout/internal/directory"
	"github.com/startuplens/ycscout/internal/source"
)

// newProbeCmd creates the 'probe' subcommand, a connectivity check that
// resolves the collection strategy and prints it without scraping anything.
func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Resolves and prints the collection strategy",
		Long: `Checks which collection strategy a scrape run would use right now: probes
the configured API endpoints in order and reports either the first usable
endpoint or the browser fallback. No data is collected.`,

		RunE: runProbeCommand,
	}
	return cmd
}

func runProbeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retry := directory.NewExponentialRetryPolicy(cfg.HTTP.MaxRetries, cfg.BackoffInitial(), cfg.BackoffMax())
	resolver := source.New(source.Config{
		Endpoints: cfg.Directory.APIEndpoints,
		UserAgent: cfg.Scrape.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	}, retry, directory.TimerPauser{}, appInstance.GetLogger())

	sel, err := resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "strategy: %s\n", sel.Strategy)
	if sel.Endpoint.URL != "" {
		fmt.Fprintf(out, "endpoint: %s (%s)\n", sel.Endpoint.URL, sel.Endpoint.Kind)
	}
	return nil
}
