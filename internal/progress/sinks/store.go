package sinks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/progress"
	"github.com/startuplens/ycscout/internal/store"
)

// StoreSink persists run history via a store.RunRepository. It collapses
// counter deltas per run within a batch to reduce write amplification.
type StoreSink struct {
	repo   store.RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume applies a batch to the repository. Lifecycle events write through
// immediately; counter deltas accumulate and flush once per run, and always
// before that run's completion row so totals never go backwards.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	deltas := make(map[string]*runDelta)

	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			if err := s.repo.StartRun(ctx, evt.RunID, evt.Strategy, evt.TS); err != nil {
				return fmt.Errorf("start run: %w", err)
			}
		case progress.StageRunDone, progress.StageRunError:
			if err := s.flush(ctx, evt.RunID, deltas); err != nil {
				return err
			}
			if err := s.completeRun(ctx, evt); err != nil {
				return err
			}
		case progress.StageListingPage:
			s.delta(deltas, evt).records += int64(evt.NewRecords)
		case progress.StageCompanyDone:
			s.delta(deltas, evt).founders += int64(evt.Founders)
		case progress.StageProfileSearch:
			d := s.delta(deltas, evt)
			d.searches++
			if evt.Found {
				d.found++
			}
		}
	}

	for runID := range deltas {
		if err := s.flush(ctx, runID, deltas); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoreSink) completeRun(ctx context.Context, evt progress.Event) error {
	status := store.RunSuccess
	var note *string
	if evt.Stage == progress.StageRunError {
		status = store.RunError
		if evt.Note != "" {
			note = &evt.Note
		}
	}
	if err := s.repo.CompleteRun(ctx, evt.RunID, evt.TS, status, int64(evt.Total), note); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

func (s *StoreSink) delta(deltas map[string]*runDelta, evt progress.Event) *runDelta {
	d := deltas[evt.RunID]
	if d == nil {
		d = &runDelta{}
		deltas[evt.RunID] = d
	}
	if evt.TS.After(d.at) {
		d.at = evt.TS
	}
	return d
}

func (s *StoreSink) flush(ctx context.Context, runID string, deltas map[string]*runDelta) error {
	d := deltas[runID]
	if d == nil {
		return nil
	}
	delete(deltas, runID)
	if d.records == 0 && d.founders == 0 && d.searches == 0 && d.found == 0 {
		return nil
	}
	if err := s.repo.AddCounters(ctx, runID, d.records, d.founders, d.searches, d.found, d.at); err != nil {
		return fmt.Errorf("add run counters: %w", err)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}

type runDelta struct {
	records  int64
	founders int64
	searches int64
	found    int64
	at       time.Time
}
