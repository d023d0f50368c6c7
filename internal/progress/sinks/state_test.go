package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/startuplens/ycscout/internal/progress"
)

func TestStateSinkFoldsEvents(t *testing.T) {
	t.Parallel()

	sink := NewStateSink()
	runID := "0195fa60-0000-7000-8000-00000000bbbb"
	now := time.Now()

	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunStart, Strategy: "api"},
		{RunID: runID, TS: now, Stage: progress.StageListingPage, NewRecords: 10, Total: 10},
		{RunID: runID, TS: now, Stage: progress.StageListingPage, NewRecords: 5, Total: 15},
		{RunID: runID, TS: now, Stage: progress.StageCompanyDone, Company: "Acme", Founders: 2},
		{RunID: runID, TS: now, Stage: progress.StageProfileSearch, Founder: "Jane Doe", Found: true},
		{RunID: runID, TS: now, Stage: progress.StageProfileSearch, Founder: "John Roe"},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	state := sink.Snapshot()
	require.Equal(t, runID, state.RunID)
	require.Equal(t, "api", state.Strategy)
	require.Equal(t, 2, state.Iterations)
	require.Equal(t, 15, state.Records)
	require.Equal(t, 1, state.Enriched)
	require.Equal(t, 2, state.Founders)
	require.Equal(t, 2, state.ProfileSearches)
	require.Equal(t, 1, state.ProfilesFound)
	require.Equal(t, string(progress.StageProfileSearch), state.Stage)
}

func TestStateSinkResetsOnNewRun(t *testing.T) {
	t.Parallel()

	sink := NewStateSink()
	now := time.Now()

	first := []progress.Event{
		{RunID: "run-a", TS: now, Stage: progress.StageRunStart},
		{RunID: "run-a", TS: now, Stage: progress.StageListingPage, NewRecords: 4, Total: 4},
	}
	require.NoError(t, sink.Consume(context.Background(), first))

	second := []progress.Event{
		{RunID: "run-b", TS: now, Stage: progress.StageRunStart},
	}
	require.NoError(t, sink.Consume(context.Background(), second))

	state := sink.Snapshot()
	require.Equal(t, "run-b", state.RunID)
	require.Equal(t, 0, state.Records, "counters from the previous run must not leak")

	errBatch := []progress.Event{
		{RunID: "run-b", TS: now, Stage: progress.StageRunError, Note: "browser session crashed"},
	}
	require.NoError(t, sink.Consume(context.Background(), errBatch))
	require.Equal(t, "browser session crashed", sink.Snapshot().LastError)
}
