// Package postgres provides the Postgres-backed run repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/startuplens/ycscout/internal/store"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// RunStore implements store.RunRepository on a pgx pool. All writes target
// the scrape_runs table, one row per run.
type RunStore struct {
	pool db
}

var _ store.RunRepository = (*RunStore)(nil)

// NewRunStore connects a pool for the provided DSN.
func NewRunStore(ctx context.Context, dsn string) (*RunStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RunStore{pool: pool}, nil
}

// NewRunStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewRunStoreWithPool(pool db) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RunStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *RunStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the run history table when it does not exist yet.
func (s *RunStore) EnsureSchema(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS scrape_runs (
	run_id           TEXT PRIMARY KEY,
	strategy         TEXT NOT NULL DEFAULT '',
	started_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ,
	status           TEXT NOT NULL,
	error_message    TEXT,
	records          BIGINT NOT NULL DEFAULT 0,
	founders         BIGINT NOT NULL DEFAULT 0,
	profile_searches BIGINT NOT NULL DEFAULT 0,
	profiles_found   BIGINT NOT NULL DEFAULT 0,
	updated_at       TIMESTAMPTZ NOT NULL
)`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure run schema: %w", err)
	}
	return nil
}

// StartRun inserts or refreshes a run's row as running.
func (s *RunStore) StartRun(ctx context.Context, runID, strategy string, startedAt time.Time) error {
	query := `
INSERT INTO scrape_runs (run_id, strategy, started_at, status, updated_at)
VALUES ($1, $2, $3, $4, $3)
ON CONFLICT (run_id) DO UPDATE
SET strategy = EXCLUDED.strategy,
    status = EXCLUDED.status,
    updated_at = EXCLUDED.updated_at`
	if _, err := s.pool.Exec(ctx, query, runID, strategy, startedAt, store.RunRunning); err != nil {
		return fmt.Errorf("upsert run start: %w", err)
	}
	return nil
}

// CompleteRun marks a run finished with a status, final record total, and
// optional error message.
func (s *RunStore) CompleteRun(
	ctx context.Context,
	runID string,
	finishedAt time.Time,
	status store.RunStatus,
	records int64,
	errMsg *string,
) error {
	query := `
UPDATE scrape_runs
SET finished_at = $1, status = $2, records = $3, error_message = $4, updated_at = $1
WHERE run_id = $5`
	if _, err := s.pool.Exec(ctx, query, finishedAt, status, records, errMsg, runID); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

// AddCounters applies accumulated deltas to a run's counters. When the run
// row does not exist yet, the deltas seed a fresh running row instead.
func (s *RunStore) AddCounters(
	ctx context.Context,
	runID string,
	records, founders, searches, found int64,
	at time.Time,
) error {
	query := `
UPDATE scrape_runs
SET records = records + $1,
    founders = founders + $2,
    profile_searches = profile_searches + $3,
    profiles_found = profiles_found + $4,
    updated_at = $5
WHERE run_id = $6`
	res, err := s.pool.Exec(ctx, query, records, founders, searches, found, at, runID)
	if err != nil {
		return fmt.Errorf("update run counters: %w", err)
	}
	if res.RowsAffected() == 0 {
		query = `
INSERT INTO scrape_runs (run_id, started_at, status, records, founders, profile_searches, profiles_found, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $2)
ON CONFLICT (run_id) DO NOTHING`
		if _, err := s.pool.Exec(ctx, query, runID, at, store.RunRunning, records, founders, searches, found); err != nil {
			return fmt.Errorf("insert run counters: %w", err)
		}
	}
	return nil
}

// GetRun retrieves a single run by its ID.
func (s *RunStore) GetRun(ctx context.Context, runID string) (store.Run, error) {
	query := `
SELECT run_id, strategy, started_at, finished_at, status, error_message,
       records, founders, profile_searches, profiles_found
FROM scrape_runs
WHERE run_id = $1`
	var run store.Run
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.RunID,
		&run.Strategy,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
		&run.ErrorMessage,
		&run.Records,
		&run.Founders,
		&run.ProfileSearches,
		&run.ProfilesFound,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Run{}, store.ErrNotFound
		}
		return store.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs newest first, with optional status filtering.
func (s *RunStore) ListRuns(
	ctx context.Context,
	status *store.RunStatus,
	limit, offset int,
) ([]store.Run, error) {
	query := `
SELECT run_id, strategy, started_at, finished_at, status, error_message,
       records, founders, profile_searches, profiles_found
FROM scrape_runs
WHERE ($1::text IS NULL OR status = $1)
ORDER BY started_at DESC
LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		var run store.Run
		err := rows.Scan(
			&run.RunID,
			&run.Strategy,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Status,
			&run.ErrorMessage,
			&run.Records,
			&run.Founders,
			&run.ProfileSearches,
			&run.ProfilesFound,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}
