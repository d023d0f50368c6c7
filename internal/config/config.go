// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Directory DirectoryConfig `mapstructure:"directory"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Search    SearchConfig    `mapstructure:"search"`
	Export    ExportConfig    `mapstructure:"export"`
	Store     StoreConfig     `mapstructure:"store"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ScrapeConfig governs the overall run: how many records to gather and how
// the scraper identifies itself.
type ScrapeConfig struct {
	TargetCount    int    `mapstructure:"target_count"`
	UserAgent      string `mapstructure:"user_agent"`
	CompanyPauseMs int    `mapstructure:"company_pause_ms"`
}

// DirectoryConfig points at the company directory: the rendered listing page
// plus the API endpoints probed by the source resolver.
type DirectoryConfig struct {
	BaseURL           string   `mapstructure:"base_url"`
	ListingURL        string   `mapstructure:"listing_url"`
	APIEndpoints      []string `mapstructure:"api_endpoints"`
	PageSize          int      `mapstructure:"page_size"`
	MaxPages          int      `mapstructure:"max_pages"`
	ListingSelectors  []string `mapstructure:"listing_selectors"`
	MinListingMatches int      `mapstructure:"min_listing_matches"`
}

// HTTPConfig configures HTTP client timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// BrowserConfig configures the headless browser used for the scroll-driven
// listing collection and for promoted detail renders.
type BrowserConfig struct {
	Headless            bool   `mapstructure:"headless"`
	ChromePath          string `mapstructure:"chrome_path"`
	NoSandbox           bool   `mapstructure:"no_sandbox"`
	NavTimeoutSec       int    `mapstructure:"nav_timeout_seconds"`
	ScrollPauseMs       int    `mapstructure:"scroll_pause_ms"`
	StagnationThreshold int    `mapstructure:"stagnation_threshold"`
	WindowWidth         int    `mapstructure:"window_width"`
	WindowHeight        int    `mapstructure:"window_height"`
}

// EnrichConfig governs detail-page fetching and founder extraction.
type EnrichConfig struct {
	FounderSelectors []string `mapstructure:"founder_selectors"`
	MaxFounders      int      `mapstructure:"max_founders"`
	RespectRobots    bool     `mapstructure:"respect_robots"`
	MaxBodyBytes     int      `mapstructure:"max_body_bytes"`
}

// DetectorConfig tunes the heuristic that promotes a detail page to a
// headless render.
type DetectorConfig struct {
	MinHTMLBytes     int      `mapstructure:"min_html_bytes"`
	Keywords         []string `mapstructure:"keywords"`
	ContentSelectors []string `mapstructure:"content_selectors"`
}

// SearchConfig points the profile finder at a search engine and paces it.
type SearchConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	QueryParam     string `mapstructure:"query_param"`
	PauseMs        int    `mapstructure:"pause_ms"`
	JitterMs       int    `mapstructure:"jitter_ms"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	BlockThreshold int    `mapstructure:"block_threshold"`
}

// ExportConfig controls CSV output.
type ExportConfig struct {
	CSVPath    string `mapstructure:"csv_path"`
	SheetsCopy bool   `mapstructure:"sheets_copy"`
}

// StoreConfig controls the optional relational sink.
type StoreConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// SnapshotConfig controls raw HTML capture for extraction debugging. The
// provider selects where captures land: a local directory or a GCS bucket.
type SnapshotConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
}

// ProgressConfig controls optional progress event fan-out beyond the local
// sinks. Both fields must be set together to enable the Pub/Sub sink.
type ProgressConfig struct {
	PubSubProject string `mapstructure:"pubsub_project"`
	PubSubTopic   string `mapstructure:"pubsub_topic"`
}

// OpsConfig controls the optional operations HTTP listener. An empty address
// disables it.
type OpsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Store providers.
const (
	StoreNone     = "none"
	StorePostgres = "postgres"
)

// Snapshot providers.
const (
	SnapshotFS  = "fs"
	SnapshotGCS = "gcs"
)

// Load builds a Config from disk/environment. A .env file in the working
// directory is folded into the environment first, then Viper applies its
// usual precedence: explicit file, environment, defaults.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("YCSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scrape.target_count", 500)
	v.SetDefault("scrape.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("scrape.company_pause_ms", 500)

	v.SetDefault("directory.base_url", "https://www.ycombinator.com")
	v.SetDefault("directory.listing_url", "https://www.ycombinator.com/companies")
	v.SetDefault("directory.api_endpoints", []string{
		"https://api.ycombinator.com/v0.1/companies",
		"https://www.ycombinator.com/graphql",
		"https://api.ycombinator.com/graphql",
		"https://www.ycombinator.com/companies/companies.json",
	})
	v.SetDefault("directory.page_size", 100)
	v.SetDefault("directory.max_pages", 25)
	v.SetDefault("directory.listing_selectors", []string{
		"a[href*='/companies/']",
		"div[class*='company']",
		"div[class*='Company']",
		"._company_lx2j5_1",
		"._companyContainer_1ogg8_1",
	})
	v.SetDefault("directory.min_listing_matches", 10)

	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 2000)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("browser.scroll_pause_ms", 2000)
	v.SetDefault("browser.stagnation_threshold", 20)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)

	v.SetDefault("enrich.founder_selectors", []string{
		"div[class*='founder'] h3, div[class*='founder'] h2, div[class*='founder'] strong",
		"div[class*='team'] h3, div[class*='team'] strong",
		"[class*='founder-name'], [class*='member-name']",
	})
	v.SetDefault("enrich.max_founders", 3)
	v.SetDefault("enrich.respect_robots", false)
	v.SetDefault("enrich.max_body_bytes", 2*1024*1024)

	v.SetDefault("detector.min_html_bytes", 2048)
	v.SetDefault("detector.keywords", []string{
		"you need to enable javascript",
		"enable javascript",
		"please turn on javascript",
	})
	v.SetDefault("detector.content_selectors", []string{
		"main",
		"article",
		"div[class*='company']",
	})

	v.SetDefault("search.base_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.query_param", "q")
	v.SetDefault("search.pause_ms", 1000)
	v.SetDefault("search.jitter_ms", 500)
	v.SetDefault("search.max_attempts", 2)
	v.SetDefault("search.block_threshold", 3)

	v.SetDefault("export.csv_path", "yc_startups.csv")
	v.SetDefault("export.sheets_copy", true)

	v.SetDefault("store.provider", StoreNone)
	v.SetDefault("store.table", "yc_startups")

	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.provider", SnapshotFS)
	v.SetDefault("snapshot.dir", "data/snapshots")
	v.SetDefault("snapshot.bucket", "")

	v.SetDefault("progress.pubsub_project", "")
	v.SetDefault("progress.pubsub_topic", "")

	v.SetDefault("ops.listen_addr", "")

	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Scrape.TargetCount <= 0 {
		return fmt.Errorf("scrape.target_count must be > 0")
	}
	if c.Scrape.UserAgent == "" {
		return fmt.Errorf("scrape.user_agent must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Browser.StagnationThreshold <= 0 {
		return fmt.Errorf("browser.stagnation_threshold must be > 0")
	}
	if c.Browser.ScrollPauseMs <= 0 {
		return fmt.Errorf("browser.scroll_pause_ms must be > 0")
	}
	if c.Enrich.MaxFounders <= 0 {
		return fmt.Errorf("enrich.max_founders must be > 0")
	}
	if c.Search.BaseURL == "" {
		return fmt.Errorf("search.base_url must be set")
	}
	if c.Export.CSVPath == "" {
		return fmt.Errorf("export.csv_path must be set")
	}
	switch c.Store.Provider {
	case StoreNone:
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set when store.provider is postgres")
		}
	default:
		return fmt.Errorf("store.provider must be %q or %q", StoreNone, StorePostgres)
	}
	switch c.Snapshot.Provider {
	case SnapshotFS:
		if c.Snapshot.Enabled && c.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot.dir must be set when snapshots are enabled")
		}
	case SnapshotGCS:
		if c.Snapshot.Enabled && c.Snapshot.Bucket == "" {
			return fmt.Errorf("snapshot.bucket must be set when snapshot.provider is gcs")
		}
	default:
		return fmt.Errorf("snapshot.provider must be %q or %q", SnapshotFS, SnapshotGCS)
	}
	if (c.Progress.PubSubProject == "") != (c.Progress.PubSubTopic == "") {
		return fmt.Errorf("progress.pubsub_project and progress.pubsub_topic must be set together")
	}
	return nil
}

// HTTPTimeout converts the configured client timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffInitial returns the first retry delay.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry delay ceiling.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// CompanyPause returns the delay between detail-page visits.
func (c Config) CompanyPause() time.Duration {
	return time.Duration(c.Scrape.CompanyPauseMs) * time.Millisecond
}

// ScrollPause returns the wait after each scroll action.
func (c Config) ScrollPause() time.Duration {
	return time.Duration(c.Browser.ScrollPauseMs) * time.Millisecond
}

// NavTimeout returns the page navigation budget.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}

// SearchPause returns the minimum delay between search queries.
func (c Config) SearchPause() time.Duration {
	return time.Duration(c.Search.PauseMs) * time.Millisecond
}

// SearchJitter returns the random extra delay added to each search pause.
func (c Config) SearchJitter() time.Duration {
	return time.Duration(c.Search.JitterMs) * time.Millisecond
}
