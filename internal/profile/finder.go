// Package profile locates public founder profiles through an HTML search
// front end. One query per founder, paced, with a latch that shuts the
// whole stage down once the engine starts refusing us.
package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/directory"
	"github.com/startuplens/ycscout/internal/policy/ratelimit"
	"github.com/startuplens/ycscout/internal/progress"
)

// Result anchors that look like profile links.
const profileAnchorSelector = "a[href*='linkedin.com/in/']"

// Substrings that mark a challenge page served with a 200.
var blockMarkers = []string{"anomaly-modal", "unusual traffic"}

// Config controls the search client.
type Config struct {
	// BaseURL is the search front end, e.g. the DuckDuckGo HTML endpoint.
	BaseURL string
	// QueryParam names the query string parameter carrying the search terms.
	QueryParam string
	// UserAgent identifies the client on search requests.
	UserAgent string
	// Timeout bounds one search request.
	Timeout time.Duration
	// MaxAttempts bounds retries for a single founder before giving up.
	MaxAttempts int
	// BlockThreshold is the number of consecutive blocked searches after
	// which the finder stops querying for the rest of the run.
	BlockThreshold int
	// RunID tags progress events.
	RunID string
}

// Finder implements directory.ProfileFinder against a search engine's
// HTML interface. Searches are paced and blocking responses are counted;
// a miss is a normal outcome, not an error.
type Finder struct {
	cfg     Config
	client  *resty.Client
	pacer   *ratelimit.Pacer
	clock   directory.Clock
	emitter progress.Emitter
	logger  *zap.Logger

	blocked int
	latched bool
}

var _ directory.ProfileFinder = (*Finder)(nil)

// New builds a Finder. The pacer spaces queries out; pass a zero-interval
// pacer to disable pacing in tests.
func New(cfg Config, pacer *ratelimit.Pacer, clock directory.Clock, emitter progress.Emitter, logger *zap.Logger) *Finder {
	if cfg.QueryParam == "" {
		cfg.QueryParam = "q"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BlockThreshold <= 0 {
		cfg.BlockThreshold = 3
	}
	client := resty.New().
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Finder{
		cfg:     cfg,
		client:  client,
		pacer:   pacer,
		clock:   clock,
		emitter: emitter,
		logger:  logger,
	}
}

// Find searches for one founder's profile link. A miss or a search
// failure returns ("", nil); only cancellation surfaces as an error.
// Once the block latch engages, Find returns immediately without
// touching the network.
func (f *Finder) Find(ctx context.Context, founder, company string) (string, error) {
	if f.latched {
		f.logger.Debug("profile search skipped, engine latched off",
			zap.String("founder", founder))
		return "", nil
	}
	start := f.clock.Now()
	if err := f.pacer.Wait(ctx); err != nil {
		return "", err
	}

	profileURL, err := f.search(ctx, founder, company)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if errors.Is(err, directory.ErrBlocked) {
			f.blocked++
			if f.blocked >= f.cfg.BlockThreshold {
				f.latched = true
				f.logger.Warn("search engine keeps refusing queries, disabling profile searches",
					zap.Int("consecutive_blocks", f.blocked))
			}
		} else {
			f.blocked = 0
		}
		f.logger.Debug("profile search failed",
			zap.String("founder", founder),
			zap.Error(err))
		f.emitSearch(founder, "", false, start, err.Error())
		return "", nil
	}

	f.blocked = 0
	f.emitSearch(founder, profileURL, profileURL != "", start, "")
	return profileURL, nil
}

// search runs the bounded attempt loop for one founder.
func (f *Finder) search(ctx context.Context, founder, company string) (string, error) {
	query := fmt.Sprintf("%s %s LinkedIn", founder, company)
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := f.pacer.Wait(ctx); err != nil {
				return "", err
			}
		}
		link, err := f.searchOnce(ctx, query)
		if err == nil {
			return link, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func (f *Finder) searchOnce(ctx context.Context, query string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam(f.cfg.QueryParam, query).
		Get(f.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	code := resp.StatusCode()
	switch {
	case code == 429 || code == 403:
		return "", fmt.Errorf("search engine refused with status %d: %w", code, directory.ErrBlocked)
	case code < 200 || code > 299:
		return "", fmt.Errorf("unexpected search status %d", code)
	}
	body := resp.Body()
	if isChallengePage(body) {
		return "", fmt.Errorf("search engine served a challenge page: %w", directory.ErrBlocked)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse search results: %w", err)
	}
	return firstProfileLink(doc), nil
}

// firstProfileLink scans result anchors in document order and returns the
// first one that cleans up into a real profile URL.
func firstProfileLink(doc *goquery.Document) string {
	var link string
	doc.Find(profileAnchorSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		if cleaned := CleanProfileURL(href); cleaned != "" {
			link = cleaned
			return false
		}
		return true
	})
	return link
}

// CleanProfileURL unwraps a search result href into a bare profile URL.
// Redirect wrappers (uddg/q parameters) are unwrapped first, tracking
// parameters are cut at the first ampersand, and anything that does not
// land on a linkedin.com /in/ path comes back empty.
func CleanProfileURL(href string) string {
	candidate := href
	if u, err := url.Parse(href); err == nil {
		q := u.Query()
		for _, param := range []string{"uddg", "q"} {
			if wrapped := q.Get(param); wrapped != "" {
				candidate = wrapped
				break
			}
		}
	}
	if i := strings.IndexByte(candidate, '&'); i >= 0 {
		candidate = candidate[:i]
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return ""
	}
	if !strings.Contains(u.Path, "/in/") {
		return ""
	}
	return candidate
}

func isChallengePage(body []byte) bool {
	lowered := strings.ToLower(string(body))
	for _, marker := range blockMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func (f *Finder) emitSearch(founder, link string, found bool, start time.Time, note string) {
	if f.emitter == nil {
		return
	}
	now := f.clock.Now()
	f.emitter.Emit(progress.Event{
		RunID:   f.cfg.RunID,
		TS:      now,
		Stage:   progress.StageProfileSearch,
		Founder: founder,
		URL:     link,
		Found:   found,
		Dur:     now.Sub(start),
		Note:    note,
	})
}
