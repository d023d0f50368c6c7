// Package cmd defines and implements the CLI commands for the ycscout executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/browser"
	"github.com/startuplens/ycscout/internal/clock/system"
	"github.com/startuplens/ycscout/internal/collect"
	"github.com/startuplens/ycscout/internal/config"
	"github.com/startuplens/ycscout/internal/directory"
	"github.com/startuplens/ycscout/internal/enrich"
	"github.com/startuplens/ycscout/internal/export"
	"github.com/startuplens/ycscout/internal/hash/sha256"
	"github.com/startuplens/ycscout/internal/headless/detector"
	"github.com/startuplens/ycscout/internal/id/uuid"
	"github.com/startuplens/ycscout/internal/policy/ratelimit"
	"github.com/startuplens/ycscout/internal/profile"
	"github.com/startuplens/ycscout/internal/progress"
	"github.com/startuplens/ycscout/internal/run"
	"github.com/startuplens/ycscout/internal/snapshot"
	"github.com/startuplens/ycscout/internal/source"
)

var (
	scrapeTarget   int
	scrapeHeadless bool
	scrapeOut      string
)

// newScrapeCmd creates and configures the 'scrape' subcommand.
// This command runs the whole pipeline: it resolves a collection strategy,
// walks the startup directory, enriches each company with founder names, and
// pairs founders with LinkedIn profile links before exporting.
func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs the full directory scrape",
		Long: `Resolves the best collection strategy once, walks the Y Combinator startup
directory until the target count is reached, enriches every company with
founder names from its detail page, searches for founder LinkedIn profiles,
and writes the dataset to CSV and, when configured, Postgres.`,

		RunE: runScrapeCommand,
	}
	cmd.Flags().IntVar(&scrapeTarget, "target", 0, "companies to collect, overrides scrape.target_count")
	cmd.Flags().BoolVar(&scrapeHeadless, "headless", true, "run the fallback browser headless")
	cmd.Flags().StringVar(&scrapeOut, "out", "", "CSV output path, overrides export.csv_path")
	return cmd
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := applyScrapeFlags(cmd, appInstance.GetConfig())
	logger := appInstance.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID, err := uuid.New().NewID()
	if err != nil {
		return fmt.Errorf("new run id: %w", err)
	}

	clock := system.New()
	pauser := directory.TimerPauser{}
	retry := directory.NewExponentialRetryPolicy(cfg.HTTP.MaxRetries, cfg.BackoffInitial(), cfg.BackoffMax())

	resolver := source.New(source.Config{
		Endpoints: cfg.Directory.APIEndpoints,
		UserAgent: cfg.Scrape.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	}, retry, pauser, logger)
	sel, err := resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	logger.Info("source resolved",
		zap.String("run_id", runID),
		zap.String("strategy", string(sel.Strategy)),
		zap.String("endpoint", sel.Endpoint.URL))

	snapshots, closeSnapshots, err := buildSnapshotStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSnapshots()

	// The session starts Chrome lazily, so constructing it up front costs
	// nothing when the API strategy never needs a render.
	session := browser.NewSession(browser.Config{
		Headless:          cfg.Browser.Headless,
		ChromePath:        cfg.Browser.ChromePath,
		NoSandbox:         cfg.Browser.NoSandbox,
		UserAgent:         cfg.Scrape.UserAgent,
		WindowWidth:       cfg.Browser.WindowWidth,
		WindowHeight:      cfg.Browser.WindowHeight,
		NavigationTimeout: cfg.NavTimeout(),
	}, logger)
	defer session.Close()

	hasher := sha256.New()
	emitter := appInstance.GetHub()

	collector := buildCollector(cfg, sel, runID, session, retry, pauser, clock, emitter, snapshots, hasher, logger)
	enricher, err := buildEnricher(cfg, runID, session, snapshots, hasher, clock, emitter, logger)
	if err != nil {
		return err
	}
	finder := buildFinder(cfg, runID, clock, emitter, logger)
	exporter, cleanup, err := buildExporter(ctx, cfg, runID, clock, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := run.New(run.Config{
		RunID:        runID,
		Strategy:     sel.Strategy,
		CompanyPause: cfg.CompanyPause(),
	}, collector, enricher, finder, exporter, pauser, clock, emitter, logger)

	summary, runErr := runner.Run(ctx)
	printSummary(cmd, summary)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("scrape: %w", runErr)
	}
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

func applyScrapeFlags(cmd *cobra.Command, cfg config.Config) config.Config {
	if cmd.Flags().Changed("target") {
		cfg.Scrape.TargetCount = scrapeTarget
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = scrapeHeadless
	}
	if cmd.Flags().Changed("out") {
		cfg.Export.CSVPath = scrapeOut
	}
	return cfg
}

// buildSnapshotStore returns the configured capture backend plus a cleanup
// for any client it holds. Snapshots are off by default.
func buildSnapshotStore(ctx context.Context, cfg config.Config) (snapshot.Store, func(), error) {
	if !cfg.Snapshot.Enabled {
		return nil, func() {}, nil
	}
	if cfg.Snapshot.Provider == config.SnapshotGCS {
		store, err := snapshot.NewGCS(ctx, cfg.Snapshot.Bucket)
		if err != nil {
			return nil, nil, fmt.Errorf("init snapshot store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
	store, err := snapshot.NewFS(cfg.Snapshot.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("init snapshot store: %w", err)
	}
	return store, func() {}, nil
}

func buildCollector(
	cfg config.Config,
	sel directory.Selection,
	runID string,
	session *browser.Session,
	retry *directory.ExponentialRetryPolicy,
	pauser directory.Pauser,
	clock directory.Clock,
	emitter progress.Emitter,
	snapshots snapshot.Store,
	hasher directory.Hasher,
	logger *zap.Logger,
) directory.Collector {
	if sel.Strategy == directory.StrategyAPI {
		return collect.NewAPICollector(collect.APIConfig{
			Endpoint:   sel.Endpoint,
			UserAgent:  cfg.Scrape.UserAgent,
			Timeout:    cfg.HTTPTimeout(),
			Target:     cfg.Scrape.TargetCount,
			PageSize:   cfg.Directory.PageSize,
			MaxPages:   cfg.Directory.MaxPages,
			Stagnation: cfg.Browser.StagnationThreshold,
			RunID:      runID,
		}, retry, pauser, clock, emitter, logger)
	}
	return collect.NewBrowserCollector(collect.BrowserConfig{
		ListingURL:  cfg.Directory.ListingURL,
		BaseURL:     cfg.Directory.BaseURL,
		Target:      cfg.Scrape.TargetCount,
		Stagnation:  cfg.Browser.StagnationThreshold,
		ScrollPause: cfg.ScrollPause(),
		Selectors:   cfg.Directory.ListingSelectors,
		MinMatches:  cfg.Directory.MinListingMatches,
		RunID:       runID,
	}, collect.NewPageSession(session), pauser, clock, emitter, snapshots, hasher, logger)
}

func buildEnricher(
	cfg config.Config,
	runID string,
	session *browser.Session,
	snapshots snapshot.Store,
	hasher directory.Hasher,
	clock directory.Clock,
	emitter progress.Emitter,
	logger *zap.Logger,
) (*enrich.Enricher, error) {
	fetcher := enrich.NewCollyFetcher(enrich.FetcherConfig{
		UserAgent:     cfg.Scrape.UserAgent,
		RespectRobots: cfg.Enrich.RespectRobots,
		Timeout:       cfg.HTTPTimeout(),
		MaxBodyBytes:  cfg.Enrich.MaxBodyBytes,
	})
	promoter, err := detector.NewHeuristic(detector.Config{
		MinHTMLBytes:     cfg.Detector.MinHTMLBytes,
		Keywords:         cfg.Detector.Keywords,
		ContentSelectors: cfg.Detector.ContentSelectors,
	})
	if err != nil {
		return nil, fmt.Errorf("init render detector: %w", err)
	}
	extractor, err := enrich.NewFounderExtractor(cfg.Enrich.FounderSelectors, cfg.Enrich.MaxFounders)
	if err != nil {
		return nil, fmt.Errorf("init founder extractor: %w", err)
	}
	return enrich.New(fetcher, session, promoter, extractor, snapshots, hasher, clock, emitter, runID, logger), nil
}

func buildFinder(
	cfg config.Config,
	runID string,
	clock directory.Clock,
	emitter progress.Emitter,
	logger *zap.Logger,
) *profile.Finder {
	pacer := ratelimit.New(ratelimit.Config{
		Interval: cfg.SearchPause(),
		Jitter:   cfg.SearchJitter(),
	})
	return profile.New(profile.Config{
		BaseURL:        cfg.Search.BaseURL,
		QueryParam:     cfg.Search.QueryParam,
		UserAgent:      cfg.Scrape.UserAgent,
		Timeout:        cfg.HTTPTimeout(),
		MaxAttempts:    cfg.Search.MaxAttempts,
		BlockThreshold: cfg.Search.BlockThreshold,
		RunID:          runID,
	}, pacer, clock, emitter, logger)
}

// buildExporter returns the export fan-out plus a cleanup that releases any
// held connections. CSV is always on; Postgres joins it when configured.
func buildExporter(
	ctx context.Context,
	cfg config.Config,
	runID string,
	clock directory.Clock,
	logger *zap.Logger,
) (directory.Exporter, func(), error) {
	csv := export.NewCSVWriter(export.CSVConfig{
		Path:       cfg.Export.CSVPath,
		SheetsCopy: cfg.Export.SheetsCopy,
	}, logger)
	if cfg.Store.Provider != config.StorePostgres {
		return csv, func() {}, nil
	}

	store, err := export.NewPostgresStore(ctx, export.PostgresConfig{
		DSN:   cfg.Store.DSN,
		Table: cfg.Store.Table,
		RunID: runID,
	}, clock, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init postgres store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return export.Multi{csv, store}, store.Close, nil
}

func printSummary(cmd *cobra.Command, s directory.RunSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s strategy)\n", s.RunID, s.Strategy)
	fmt.Fprintf(out, "  records          %d\n", s.Records)
	fmt.Fprintf(out, "  with founders    %d\n", s.WithFounders)
	fmt.Fprintf(out, "  founder links    %d\n", s.FounderLinks)
	fmt.Fprintf(out, "  profile searches %d\n", s.ProfileSearches)
	fmt.Fprintf(out, "  elapsed          %s\n", s.Elapsed.Round(time.Millisecond))
}
