package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart      Stage = "RUN_START"
	StageRunDone       Stage = "RUN_DONE"
	StageRunError      Stage = "RUN_ERROR"
	StageListingPage   Stage = "LISTING_PAGE"
	StageCompanyDone   Stage = "COMPANY_DONE"
	StageProfileSearch Stage = "PROFILE_SEARCH"
)

// Event captures a single milestone of scrape progress.
type Event struct {
	// RunID uniquely identifies a scrape run.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Strategy is the collection strategy label ("api" or "browser").
	Strategy string
	// Company scopes company-level events to a record.
	Company string
	// Founder scopes profile searches to one founder name.
	Founder string
	// URL is the optional page URL; it should not contain credentials.
	URL string
	// NewRecords counts unique records added by one listing iteration.
	NewRecords int
	// Total is the running unique record count (final count on RUN_DONE).
	Total int
	// Founders counts founder names attached by one enrichment.
	Founders int
	// UsedBrowser marks an enrichment that needed a headless render.
	UsedBrowser bool
	// Found marks a profile search that produced a link.
	Found bool
	// Dur captures execution latency for the milestone.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageListingPage:
		if e.NewRecords < 0 || e.Total < e.NewRecords {
			return errors.New("listing counts must satisfy 0 <= new <= total")
		}
	case StageCompanyDone:
		if e.Company == "" {
			return errors.New("company done requires a company")
		}
	case StageProfileSearch:
		if e.Founder == "" {
			return errors.New("profile search requires a founder")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
