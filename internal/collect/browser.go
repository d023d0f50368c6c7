package collect

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/directory"
	"github.com/startuplens/ycscout/internal/progress"
	"github.com/startuplens/ycscout/internal/snapshot"
)

// ListingPage abstracts the rendered directory listing so the scroll loop
// can run against a real browser tab or a test double.
type ListingPage interface {
	Navigate(ctx context.Context, url string) error
	ScrollToBottom(ctx context.Context) error
	CountMatches(ctx context.Context, selector string) (int, error)
	Cards(ctx context.Context, selector string) ([]Card, error)
	ClickLoadMore(ctx context.Context) (bool, error)
	HTML(ctx context.Context) (string, error)
}

// BrowserConfig carries the knobs for collecting from the rendered listing.
type BrowserConfig struct {
	ListingURL  string
	BaseURL     string
	Target      int
	Stagnation  int
	ScrollPause time.Duration
	Selectors   []string
	MinMatches  int
	RunID       string
}

// BrowserCollector walks the listing's infinite scroll: extract the visible
// cards, scroll, wait, extract again, until the target is met or the page
// stops yielding new companies for Stagnation consecutive iterations.
type BrowserCollector struct {
	cfg       BrowserConfig
	page      ListingPage
	pauser    directory.Pauser
	clock     directory.Clock
	emitter   progress.Emitter
	snapshots snapshot.Store
	hasher    directory.Hasher
	logger    *zap.Logger
}

var _ directory.Collector = (*BrowserCollector)(nil)

// NewBrowserCollector wires a collector around an open listing page. The
// snapshot store may be nil, in which case no capture is written.
func NewBrowserCollector(cfg BrowserConfig, page ListingPage, pauser directory.Pauser, clock directory.Clock, emitter progress.Emitter, snapshots snapshot.Store, hasher directory.Hasher, logger *zap.Logger) *BrowserCollector {
	return &BrowserCollector{
		cfg:       cfg,
		page:      page,
		pauser:    pauser,
		clock:     clock,
		emitter:   emitter,
		snapshots: snapshots,
		hasher:    hasher,
		logger:    logger,
	}
}

// Collect implements directory.Collector.
func (c *BrowserCollector) Collect(ctx context.Context) ([]directory.StartupRecord, error) {
	if err := c.page.Navigate(ctx, c.cfg.ListingURL); err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	c.pauser.Pause(ctx, c.cfg.ScrollPause)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	selector, err := c.pickSelector(ctx)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator(c.cfg.Target)
	stagnant := 0
	for {
		if ctx.Err() != nil {
			return acc.records, ctx.Err()
		}
		cards, err := c.page.Cards(ctx, selector)
		if err != nil {
			c.logger.Warn("card extraction failed", zap.Error(err))
			break
		}
		added := c.absorb(acc, cards)
		c.emitPage(added, acc.count())
		c.logger.Debug("listing iteration",
			zap.Int("cards", len(cards)),
			zap.Int("new_records", added),
			zap.Int("total", acc.count()))
		if acc.full() {
			break
		}
		if added == 0 {
			stagnant++
			if stagnant >= c.cfg.Stagnation {
				c.logger.Info("listing stagnated",
					zap.Int("iterations_without_new", stagnant),
					zap.Int("total", acc.count()))
				break
			}
			if clicked, cerr := c.page.ClickLoadMore(ctx); cerr == nil && clicked {
				c.logger.Debug("clicked load-more control")
			}
		} else {
			stagnant = 0
		}
		if err := c.page.ScrollToBottom(ctx); err != nil {
			c.logger.Warn("scroll failed", zap.Error(err))
			break
		}
		c.pauser.Pause(ctx, c.cfg.ScrollPause)
	}

	c.snapshotListing(ctx)
	if acc.count() == 0 {
		return nil, directory.ErrNoResults
	}
	return acc.records, nil
}

// pickSelector tries each configured selector in order and settles on the
// first one matching more than MinMatches elements. When none clears the
// bar, the selector with the most matches is used so a short directory
// still yields its few records.
func (c *BrowserCollector) pickSelector(ctx context.Context) (string, error) {
	bestSel, bestCount := "", 0
	for _, sel := range c.cfg.Selectors {
		n, err := c.page.CountMatches(ctx, sel)
		if err != nil {
			c.logger.Debug("selector probe failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		if n > c.cfg.MinMatches {
			c.logger.Info("listing selector matched",
				zap.String("selector", sel),
				zap.Int("matches", n))
			return sel, nil
		}
		if n > bestCount {
			bestSel, bestCount = sel, n
		}
	}
	if bestCount == 0 {
		return "", fmt.Errorf("no listing selector matched: %w", directory.ErrNoResults)
	}
	c.logger.Warn("falling back to sparse selector",
		zap.String("selector", bestSel),
		zap.Int("matches", bestCount))
	return bestSel, nil
}

func (c *BrowserCollector) absorb(acc *accumulator, cards []Card) int {
	added := 0
	for _, card := range cards {
		if acc.full() {
			break
		}
		rec, ok := ParseCard(card, c.cfg.BaseURL)
		if !ok {
			continue
		}
		if acc.add(rec) {
			added++
		}
	}
	return added
}

func (c *BrowserCollector) snapshotListing(ctx context.Context) {
	if c.snapshots == nil || ctx.Err() != nil {
		return
	}
	html, err := c.page.HTML(ctx)
	if err != nil {
		c.logger.Debug("listing snapshot skipped", zap.Error(err))
		return
	}
	name := snapshot.ObjectName(c.clock, c.hasher, c.cfg.ListingURL, []byte(html))
	uri, err := c.snapshots.Put(ctx, name, []byte(html))
	if err != nil {
		c.logger.Warn("listing snapshot failed", zap.Error(err))
		return
	}
	c.logger.Info("listing snapshot stored", zap.String("uri", uri))
}

func (c *BrowserCollector) emitPage(added, total int) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(progress.Event{
		RunID:      c.cfg.RunID,
		TS:         c.clock.Now(),
		Stage:      progress.StageListingPage,
		Strategy:   string(directory.StrategyBrowser),
		NewRecords: added,
		Total:      total,
	})
}
