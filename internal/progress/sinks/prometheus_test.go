package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/startuplens/ycscout/internal/progress"
)

// TestPrometheusSinkRecordsMetrics ensures counters and histograms are incremented from events.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := "0195fa60-0000-7000-8000-00000000aaaa"
	now := time.Now()
	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunStart, Strategy: "browser"},
		{
			RunID:      runID,
			TS:         now.Add(2 * time.Second),
			Stage:      progress.StageListingPage,
			Strategy:   "browser",
			NewRecords: 18,
			Total:      18,
		},
		{
			RunID:       runID,
			TS:          now.Add(4 * time.Second),
			Stage:       progress.StageCompanyDone,
			Strategy:    "browser",
			Company:     "Acme",
			Founders:    2,
			UsedBrowser: true,
			Dur:         350 * time.Millisecond,
		},
		{
			RunID:    runID,
			TS:       now.Add(5 * time.Second),
			Stage:    progress.StageProfileSearch,
			Strategy: "browser",
			Company:  "Acme",
			Founder:  "Jane Doe",
			Found:    true,
		},
		{
			RunID:    runID,
			TS:       now.Add(6 * time.Second),
			Stage:    progress.StageProfileSearch,
			Strategy: "browser",
			Company:  "Acme",
			Founder:  "John Roe",
		},
		{RunID: runID, TS: now.Add(15 * time.Second), Stage: progress.StageRunDone, Strategy: "browser", Total: 18, Dur: 15 * time.Second},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("success")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("error")))

	require.InDelta(t, 1.0, testutil.ToFloat64(sink.listingIterations.WithLabelValues("browser")), 1e-9)
	require.InDelta(t, 18.0, testutil.ToFloat64(sink.recordsCollected.WithLabelValues("browser")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(sink.companiesEnriched.WithLabelValues("browser")), 1e-9)
	require.InDelta(t, 2.0, testutil.ToFloat64(sink.foundersFound), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(sink.profileSearches.WithLabelValues("found")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(sink.profileSearches.WithLabelValues("miss")), 1e-9)
	require.Equal(t, 1, testutil.CollectAndCount(sink.enrichDuration, "ycscout_company_enrich_seconds"))
}

// TestPrometheusSinkDuplicateRegistration surfaces registry conflicts.
func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
