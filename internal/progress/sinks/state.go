package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/startuplens/ycscout/internal/progress"
)

// RunState is a point-in-time view of the current run, serializable for the
// ops progress endpoint.
type RunState struct {
	RunID           string    `json:"run_id"`
	Strategy        string    `json:"strategy"`
	Stage           string    `json:"stage"`
	StartedAt       time.Time `json:"started_at,omitempty"`
	FinishedAt      time.Time `json:"finished_at,omitempty"`
	Records         int       `json:"records"`
	Iterations      int       `json:"iterations"`
	Enriched        int       `json:"enriched"`
	Founders        int       `json:"founders"`
	ProfileSearches int       `json:"profile_searches"`
	ProfilesFound   int       `json:"profiles_found"`
	LastError       string    `json:"last_error,omitempty"`
}

// StateSink folds events into live run counters so the ops listener can
// answer "how far along is it" without touching the pipeline.
type StateSink struct {
	mu    sync.RWMutex
	state RunState
}

// NewStateSink returns an empty state sink.
func NewStateSink() *StateSink {
	return &StateSink{}
}

// Consume folds the batch into the current state.
func (s *StateSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.apply(evt)
	}
	return nil
}

func (s *StateSink) apply(evt progress.Event) {
	if evt.RunID != "" && evt.RunID != s.state.RunID {
		// A new run resets the counters.
		s.state = RunState{RunID: evt.RunID}
	}
	s.state.Stage = string(evt.Stage)
	if evt.Strategy != "" {
		s.state.Strategy = evt.Strategy
	}
	switch evt.Stage {
	case progress.StageRunStart:
		s.state.StartedAt = evt.TS
	case progress.StageRunDone:
		s.state.FinishedAt = evt.TS
		if evt.Total > 0 {
			s.state.Records = evt.Total
		}
	case progress.StageRunError:
		s.state.FinishedAt = evt.TS
		s.state.LastError = evt.Note
	case progress.StageListingPage:
		s.state.Iterations++
		s.state.Records = evt.Total
	case progress.StageCompanyDone:
		s.state.Enriched++
		s.state.Founders += evt.Founders
	case progress.StageProfileSearch:
		s.state.ProfileSearches++
		if evt.Found {
			s.state.ProfilesFound++
		}
	}
}

// Snapshot returns a copy of the current state.
func (s *StateSink) Snapshot() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Close implements the Sink interface; it performs no action.
func (s *StateSink) Close(context.Context) error {
	return nil
}
