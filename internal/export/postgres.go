package export

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/directory"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the relational sink.
type PostgresConfig struct {
	DSN             string
	Table           string
	RunID           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresStore upserts records into a Postgres table keyed by company
// name, so repeated runs refresh rows instead of duplicating them.
type PostgresStore struct {
	pool   execCloser
	table  string
	runID  string
	clock  directory.Clock
	logger *zap.Logger
}

var _ directory.Exporter = (*PostgresStore)(nil)

// NewPostgresStore connects a pool using the provided config.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, clock directory.Clock, logger *zap.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newPostgresStore(pool, cfg, clock, logger)
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool execCloser, cfg PostgresConfig, clock directory.Clock, logger *zap.Logger) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newPostgresStore(pool, cfg, clock, logger)
}

func newPostgresStore(pool execCloser, cfg PostgresConfig, clock directory.Clock, logger *zap.Logger) (*PostgresStore, error) {
	table := cfg.Table
	if table == "" {
		table = "yc_startups"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{
		pool:   pool,
		table:  table,
		runID:  cfg.RunID,
		clock:  clock,
		logger: logger,
	}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the destination table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	company_name  TEXT PRIMARY KEY,
	batch         TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	founders      TEXT[] NOT NULL DEFAULT '{}',
	founder_links TEXT[] NOT NULL DEFAULT '{}',
	company_url   TEXT NOT NULL DEFAULT '',
	run_id        TEXT NOT NULL,
	scraped_at    TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Export upserts every record under the store's run ID.
func (s *PostgresStore) Export(ctx context.Context, records []directory.StartupRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	company_name,
	batch,
	description,
	founders,
	founder_links,
	company_url,
	run_id,
	scraped_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)
ON CONFLICT (company_name) DO UPDATE SET
	batch         = EXCLUDED.batch,
	description   = EXCLUDED.description,
	founders      = EXCLUDED.founders,
	founder_links = EXCLUDED.founder_links,
	company_url   = EXCLUDED.company_url,
	run_id        = EXCLUDED.run_id,
	scraped_at    = EXCLUDED.scraped_at`, s.table)

	scrapedAt := s.clock.Now().UTC()
	for _, rec := range records {
		args := []any{
			rec.CompanyName,
			rec.Batch,
			rec.Description,
			textArray(rec.Founders),
			textArray(rec.FounderLinks),
			rec.CompanyURL,
			s.runID,
			scrapedAt,
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %q: %w", rec.CompanyName, err)
		}
	}
	s.logger.Info("postgres rows upserted",
		zap.String("table", s.table),
		zap.Int("records", len(records)))
	return nil
}

// textArray keeps nil slices out of the driver so columns stay NOT NULL.
func textArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
