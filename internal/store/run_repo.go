package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals that the requested run does not exist.
var ErrNotFound = errors.New("run record not found")

// RunStatus mirrors the scrape_runs status column.
type RunStatus string

// Run statuses persisted in scrape_runs.status.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Run models one scrape run for history queries.
type Run struct {
	// RunID is the identifier stamped on every progress event of the run.
	RunID string
	// Strategy is the collection strategy the run resolved to.
	Strategy string
	// StartedAt captures when the run was first marked running.
	StartedAt time.Time
	// FinishedAt is nil until the run is marked success/error.
	FinishedAt *time.Time
	// Status is running/success/error.
	Status RunStatus
	// ErrorMessage optionally stores the final failure reason.
	ErrorMessage *string
	// Records is the unique record count, final once the run completes.
	Records int64
	// Founders counts founder names attached during enrichment.
	Founders int64
	// ProfileSearches counts profile searches attempted.
	ProfileSearches int64
	// ProfilesFound counts searches that produced a link.
	ProfilesFound int64
}

// RunRepository persists incremental run progress.
type RunRepository interface {
	// StartRun inserts (or idempotently updates) the run's started_at row.
	StartRun(ctx context.Context, runID, strategy string, startedAt time.Time) error
	// CompleteRun marks the run finished with the provided status and final
	// record total.
	CompleteRun(ctx context.Context, runID string, finishedAt time.Time, status RunStatus, records int64, errMsg *string) error
	// AddCounters applies record/founder/search deltas accumulated from a
	// batch of progress events.
	AddCounters(ctx context.Context, runID string, records, founders, searches, found int64, at time.Time) error

	// GetRun loads a single run or returns ErrNotFound.
	GetRun(ctx context.Context, runID string) (Run, error)
	// ListRuns returns runs filtered by optional status plus limit/offset.
	ListRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]Run, error)
}
