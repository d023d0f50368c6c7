package enrich

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/directory"
	"github.com/startuplens/ycscout/internal/headless/detector"
	"github.com/startuplens/ycscout/internal/progress"
	"github.com/startuplens/ycscout/internal/snapshot"
)

// Renderer produces fully rendered HTML for a URL. The shared browser
// session satisfies it; a nil Renderer disables promotion entirely.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Enricher is the per-record founder pass. Failures never abort the run:
// a record that cannot be enriched ships with empty founder fields.
type Enricher struct {
	fetcher   PageFetcher
	renderer  Renderer
	promoter  *detector.Heuristic
	extractor *FounderExtractor
	snapshots snapshot.Store
	hasher    directory.Hasher
	clock     directory.Clock
	emitter   progress.Emitter
	logger    *zap.Logger
	runID     string
}

var _ directory.Enricher = (*Enricher)(nil)

// New wires an enricher. renderer and snapshots may be nil.
func New(fetcher PageFetcher, renderer Renderer, promoter *detector.Heuristic, extractor *FounderExtractor, snapshots snapshot.Store, hasher directory.Hasher, clock directory.Clock, emitter progress.Emitter, runID string, logger *zap.Logger) *Enricher {
	return &Enricher{
		fetcher:   fetcher,
		renderer:  renderer,
		promoter:  promoter,
		extractor: extractor,
		snapshots: snapshots,
		hasher:    hasher,
		clock:     clock,
		emitter:   emitter,
		logger:    logger,
		runID:     runID,
	}
}

// Enrich implements directory.Enricher. Records that already carry
// founders pass through untouched; everything else gets the static fetch,
// the conditional render promotion, and the name-shape fallback, in that
// order. Only context cancellation surfaces as an error.
func (e *Enricher) Enrich(ctx context.Context, rec *directory.StartupRecord) error {
	start := e.clock.Now()
	if rec.HasFounders() {
		e.emitCompany(rec, false, start, "already enriched")
		return nil
	}
	if rec.CompanyURL == "" {
		e.emitCompany(rec, false, start, "no detail url")
		return nil
	}

	body, fetchErr := e.fetcher.Fetch(ctx, rec.CompanyURL)
	if fetchErr != nil {
		if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
			return fetchErr
		}
		e.logger.Debug("detail fetch failed",
			zap.String("company", rec.CompanyName),
			zap.String("url", rec.CompanyURL),
			zap.Error(fetchErr))
	}

	var names []string
	if fetchErr == nil {
		names = e.extractor.FromSelectors(body)
	}

	usedBrowser := false
	if len(names) == 0 && e.renderer != nil && (fetchErr != nil || e.promoter.ShouldPromote(body)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		html, err := e.renderer.Render(ctx, rec.CompanyURL)
		switch {
		case err == nil:
			usedBrowser = true
			body = []byte(html)
			names = e.extractor.FromSelectors(body)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			e.logger.Debug("render failed",
				zap.String("company", rec.CompanyName),
				zap.Error(err))
		}
	}

	if len(names) == 0 && len(body) > 0 {
		names = e.extractor.FallbackNames(body)
		if len(names) == 0 {
			e.snapshotMiss(ctx, rec.CompanyURL, body)
		}
	}

	if len(names) > 0 {
		rec.Founders = names
		rec.FounderLinks = make([]string, len(names))
	}
	e.emitCompany(rec, usedBrowser, start, "")
	return nil
}

// snapshotMiss archives the page so the selector ladder can be tuned
// against the exact HTML that produced nothing.
func (e *Enricher) snapshotMiss(ctx context.Context, url string, body []byte) {
	if e.snapshots == nil || ctx.Err() != nil {
		return
	}
	name := snapshot.ObjectName(e.clock, e.hasher, url, body)
	uri, err := e.snapshots.Put(ctx, name, body)
	if err != nil {
		e.logger.Warn("snapshot failed", zap.String("url", url), zap.Error(err))
		return
	}
	e.logger.Debug("extraction miss archived", zap.String("uri", uri))
}

func (e *Enricher) emitCompany(rec *directory.StartupRecord, usedBrowser bool, start time.Time, note string) {
	if e.emitter == nil {
		return
	}
	now := e.clock.Now()
	e.emitter.Emit(progress.Event{
		RunID:       e.runID,
		TS:          now,
		Stage:       progress.StageCompanyDone,
		Company:     rec.CompanyName,
		URL:         rec.CompanyURL,
		Founders:    len(rec.Founders),
		UsedBrowser: usedBrowser,
		Dur:         now.Sub(start),
		Note:        note,
	})
}
