package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/startuplens/ycscout/internal/progress"
)

// PrometheusSink exports scrape progress metrics via Prometheus. It owns all
// collectors for runs started/completed plus record, founder, and profile
// counters.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	listingIterations *prometheus.CounterVec
	recordsCollected  *prometheus.CounterVec
	companiesEnriched *prometheus.CounterVec
	foundersFound     prometheus.Counter
	profileSearches   *prometheus.CounterVec
	enrichDuration    prometheus.Histogram
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ycscout_runs_started_total",
			Help: "Total scrape runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ycscout_runs_completed_total",
			Help: "Total scrape runs completed partitioned by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ycscout_run_duration_seconds",
			Help:    "Wall time per completed run.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"result"}),
		listingIterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ycscout_listing_iterations_total",
			Help: "Scroll or page iterations partitioned by strategy.",
		}, []string{"strategy"}),
		recordsCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ycscout_records_collected_total",
			Help: "Unique startup records collected partitioned by strategy.",
		}, []string{"strategy"}),
		companiesEnriched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ycscout_companies_enriched_total",
			Help: "Detail pages processed partitioned by render mode.",
		}, []string{"mode"}),
		foundersFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ycscout_founders_found_total",
			Help: "Founder names extracted across all records.",
		}),
		profileSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ycscout_profile_searches_total",
			Help: "Profile searches partitioned by result.",
		}, []string{"result"}),
		enrichDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ycscout_company_enrich_seconds",
			Help:    "Time spent enriching one company.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runDuration,
		s.listingIterations,
		s.recordsCollected,
		s.companiesEnriched,
		s.foundersFound,
		s.profileSearches,
		s.enrichDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	strategy := evt.Strategy
	if strategy == "" {
		strategy = "unknown"
	}
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
	case progress.StageRunDone:
		s.runsCompleted.WithLabelValues("success").Inc()
		s.observeRun(evt, "success")
	case progress.StageRunError:
		s.runsCompleted.WithLabelValues("error").Inc()
		s.observeRun(evt, "error")
	case progress.StageListingPage:
		s.listingIterations.WithLabelValues(strategy).Inc()
		if evt.NewRecords > 0 {
			s.recordsCollected.WithLabelValues(strategy).Add(float64(evt.NewRecords))
		}
	case progress.StageCompanyDone:
		mode := "static"
		if evt.UsedBrowser {
			mode = "browser"
		}
		s.companiesEnriched.WithLabelValues(mode).Inc()
		if evt.Founders > 0 {
			s.foundersFound.Add(float64(evt.Founders))
		}
		if evt.Dur > 0 {
			s.enrichDuration.Observe(evt.Dur.Seconds())
		}
	case progress.StageProfileSearch:
		result := "miss"
		if evt.Found {
			result = "found"
		}
		s.profileSearches.WithLabelValues(result).Inc()
	}
}

func (s *PrometheusSink) observeRun(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.runDuration.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
