// Package run drives the scrape pipeline end to end: collect the listing,
// enrich each record with founders, search for profile links, and export.
// The pipeline is strictly sequential; one record finishes before the next
// starts, and pacing pauses sit between companies.
package run

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/directory"
	"github.com/startuplens/ycscout/internal/progress"
)

const defaultExportTimeout = 30 * time.Second

// Config carries the per-run knobs the Runner itself needs. Everything
// stage-specific lives in the stage components.
type Config struct {
	RunID    string
	Strategy directory.Strategy
	// CompanyPause is the delay between consecutive companies.
	CompanyPause time.Duration
	// ExportTimeout bounds the flush that runs after a cancelled run.
	ExportTimeout time.Duration
}

// Runner owns the sequential pipeline. It treats per-record trouble as
// non-fatal and always tries to flush whatever was collected, even when
// the run is interrupted partway.
type Runner struct {
	cfg       Config
	collector directory.Collector
	enricher  directory.Enricher
	finder    directory.ProfileFinder
	exporter  directory.Exporter
	pauser    directory.Pauser
	clock     directory.Clock
	emitter   progress.Emitter
	logger    *zap.Logger
}

// New wires a Runner from its stage components.
func New(
	cfg Config,
	collector directory.Collector,
	enricher directory.Enricher,
	finder directory.ProfileFinder,
	exporter directory.Exporter,
	pauser directory.Pauser,
	clock directory.Clock,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Runner {
	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = defaultExportTimeout
	}
	return &Runner{
		cfg:       cfg,
		collector: collector,
		enricher:  enricher,
		finder:    finder,
		exporter:  exporter,
		pauser:    pauser,
		clock:     clock,
		emitter:   emitter,
		logger:    logger,
	}
}

// Run executes the pipeline once and returns the totals. The summary is
// valid even when an error comes back with it.
func (r *Runner) Run(ctx context.Context) (directory.RunSummary, error) {
	start := r.clock.Now()
	r.emitRun(progress.StageRunStart, 0, 0, "")
	r.logger.Info("run started",
		zap.String("run_id", r.cfg.RunID),
		zap.String("strategy", string(r.cfg.Strategy)))

	records, collectErr := r.collector.Collect(ctx)
	if collectErr != nil && len(records) == 0 {
		summary := r.summarize(nil, start, 0)
		r.emitRun(progress.StageRunError, 0, summary.Elapsed, collectErr.Error())
		return summary, fmt.Errorf("collect: %w", collectErr)
	}
	if collectErr != nil {
		r.logger.Warn("collection interrupted, flushing partial records",
			zap.Int("records", len(records)),
			zap.Error(collectErr))
	}

	var searches int
	if collectErr == nil {
		searches = r.enrichAll(ctx, records)
	}

	exportErr := r.export(ctx, records)
	summary := r.summarize(records, start, searches)

	switch {
	case exportErr != nil:
		r.emitRun(progress.StageRunError, summary.Records, summary.Elapsed, exportErr.Error())
		return summary, exportErr
	case collectErr != nil:
		r.emitRun(progress.StageRunError, summary.Records, summary.Elapsed, collectErr.Error())
		return summary, fmt.Errorf("collect: %w", collectErr)
	case ctx.Err() != nil:
		r.emitRun(progress.StageRunError, summary.Records, summary.Elapsed, ctx.Err().Error())
		return summary, fmt.Errorf("run interrupted: %w", ctx.Err())
	}

	r.emitRun(progress.StageRunDone, summary.Records, summary.Elapsed, "")
	r.logger.Info("run complete",
		zap.Int("records", summary.Records),
		zap.Int("with_founders", summary.WithFounders),
		zap.Int("founder_links", summary.FounderLinks),
		zap.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// enrichAll walks the records in order, filling founders and profile
// links. It stops early on cancellation and reports how many profile
// searches were attempted.
func (r *Runner) enrichAll(ctx context.Context, records []directory.StartupRecord) int {
	searches := 0
	for i := range records {
		if ctx.Err() != nil {
			r.logger.Warn("pipeline interrupted",
				zap.Int("processed", i),
				zap.Int("records", len(records)))
			break
		}
		rec := &records[i]
		if err := r.enricher.Enrich(ctx, rec); err != nil {
			break
		}
		searches += r.findProfiles(ctx, rec)
		if i < len(records)-1 {
			r.pauser.Pause(ctx, r.cfg.CompanyPause)
		}
	}
	return searches
}

// findProfiles searches for every founder on the record that does not
// already carry a link. FounderLinks stays parallel to Founders.
func (r *Runner) findProfiles(ctx context.Context, rec *directory.StartupRecord) int {
	if len(rec.Founders) == 0 {
		return 0
	}
	if len(rec.FounderLinks) != len(rec.Founders) {
		links := make([]string, len(rec.Founders))
		copy(links, rec.FounderLinks)
		rec.FounderLinks = links
	}
	searches := 0
	for i, founder := range rec.Founders {
		if founder == "" || rec.FounderLinks[i] != "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		searches++
		link, err := r.finder.Find(ctx, founder, rec.CompanyName)
		if err != nil {
			break
		}
		rec.FounderLinks[i] = link
	}
	return searches
}

// export flushes the record set. A cancelled run still gets its partial
// results written, under a fresh bounded context.
func (r *Runner) export(ctx context.Context, records []directory.StartupRecord) error {
	if len(records) == 0 {
		return nil
	}
	exportCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		exportCtx, cancel = context.WithTimeout(context.Background(), r.cfg.ExportTimeout)
		defer cancel()
	}
	if err := r.exporter.Export(exportCtx, records); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func (r *Runner) summarize(records []directory.StartupRecord, start time.Time, searches int) directory.RunSummary {
	s := directory.RunSummary{
		RunID:           r.cfg.RunID,
		Strategy:        r.cfg.Strategy,
		Records:         len(records),
		ProfileSearches: searches,
		Elapsed:         r.clock.Now().Sub(start),
	}
	for _, rec := range records {
		if rec.HasFounders() {
			s.WithFounders++
		}
		for _, link := range rec.FounderLinks {
			if link != "" {
				s.FounderLinks++
			}
		}
	}
	return s
}

func (r *Runner) emitRun(stage progress.Stage, total int, dur time.Duration, note string) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(progress.Event{
		RunID:    r.cfg.RunID,
		TS:       r.clock.Now(),
		Stage:    stage,
		Strategy: string(r.cfg.Strategy),
		Total:    total,
		Dur:      dur,
		Note:     note,
	})
}
