package directory

import "errors"

// Sentinel errors shared across subsystems. All of them are non-fatal to the
// run: the resolver falls back, collectors stop paging, and enrichment moves
// on to the next record.
var (
	// ErrSourceUnavailable means every directory API probe failed and the
	// run should use the browser strategy.
	ErrSourceUnavailable = errors.New("directory source unavailable")

	// ErrNoResults means the API has no further companies to page through.
	ErrNoResults = errors.New("no more results")

	// ErrBlocked means the remote service answered with a rate-limit or
	// access-denied status.
	ErrBlocked = errors.New("blocked by remote service")
)
