package collect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/directory"
	"github.com/startuplens/ycscout/internal/progress"
)

// APIConfig carries the knobs for collecting over a directory API endpoint.
type APIConfig struct {
	Endpoint   directory.Endpoint
	UserAgent  string
	Timeout    time.Duration
	Target     int
	PageSize   int
	MaxPages   int
	Stagnation int
	RunID      string
}

// APICollector pages through a JSON directory endpoint until the target is
// reached, pages run out, or paging stops producing new companies. GraphQL
// endpoints are queried once since the pinned query is unpaginated.
type APICollector struct {
	cfg     APIConfig
	client  *resty.Client
	retry   *directory.ExponentialRetryPolicy
	pauser  directory.Pauser
	clock   directory.Clock
	emitter progress.Emitter
	logger  *zap.Logger
}

var _ directory.Collector = (*APICollector)(nil)

func NewAPICollector(cfg APIConfig, retry *directory.ExponentialRetryPolicy, pauser directory.Pauser, clock directory.Clock, emitter progress.Emitter, logger *zap.Logger) *APICollector {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json, text/plain, */*").
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	return &APICollector{
		cfg:     cfg,
		client:  client,
		retry:   retry,
		pauser:  pauser,
		clock:   clock,
		emitter: emitter,
		logger:  logger,
	}
}

// Collect implements directory.Collector. A mid-run endpoint failure after
// at least one record was gathered is demoted to a warning so the partial
// set still flows downstream.
func (c *APICollector) Collect(ctx context.Context) ([]directory.StartupRecord, error) {
	acc := newAccumulator(c.cfg.Target)
	var err error
	if c.cfg.Endpoint.Kind == directory.KindGraphQL {
		err = c.collectGraphQL(ctx, acc)
	} else {
		err = c.collectREST(ctx, acc)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return acc.records, err
		}
		if acc.count() == 0 {
			return nil, err
		}
		c.logger.Warn("api collection stopped early",
			zap.Int("records", acc.count()),
			zap.Error(err))
	}
	if acc.count() == 0 {
		return nil, directory.ErrNoResults
	}
	return acc.records, nil
}

func (c *APICollector) collectREST(ctx context.Context, acc *accumulator) error {
	stagnant := 0
	for page := 1; page <= c.cfg.MaxPages; page++ {
		body, err := c.withRetry(ctx, func() ([]byte, error) {
			return c.requestPage(ctx, page)
		})
		if err != nil {
			if errors.Is(err, directory.ErrNoResults) {
				return nil
			}
			return fmt.Errorf("page %d: %w", page, err)
		}
		records, err := ParsePayload(body)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		if len(records) == 0 {
			return nil
		}
		added := acc.addAll(records)
		c.emitPage(added, acc.count())
		c.logger.Debug("directory page collected",
			zap.Int("page", page),
			zap.Int("new_records", added),
			zap.Int("total", acc.count()))
		if acc.full() {
			return nil
		}
		if added == 0 {
			stagnant++
			if stagnant >= c.cfg.Stagnation {
				c.logger.Info("api paging stagnated",
					zap.Int("pages_without_new", stagnant),
					zap.Int("total", acc.count()))
				return nil
			}
		} else {
			stagnant = 0
		}
	}
	return nil
}

func (c *APICollector) collectGraphQL(ctx context.Context, acc *accumulator) error {
	reqBody, err := GraphQLRequestBody()
	if err != nil {
		return err
	}
	body, err := c.withRetry(ctx, func() ([]byte, error) {
		return c.requestGraphQL(ctx, reqBody)
	})
	if err != nil {
		return err
	}
	records, err := ParsePayload(body)
	if err != nil {
		return err
	}
	added := acc.addAll(records)
	c.emitPage(added, acc.count())
	return nil
}

func (c *APICollector) withRetry(ctx context.Context, fetch func() ([]byte, error)) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts(); attempt++ {
		body, err := fetch()
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !c.retry.ShouldRetry(err, attempt) {
			break
		}
		delay := c.retry.Backoff(attempt)
		c.logger.Debug("retrying directory request",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		c.pauser.Pause(ctx, delay)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *APICollector) requestPage(ctx context.Context, page int) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":     strconv.Itoa(page),
			"per_page": strconv.Itoa(c.cfg.PageSize),
		}).
		Get(c.cfg.Endpoint.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.cfg.Endpoint.URL, err)
	}
	if err := statusError(resp.StatusCode()); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *APICollector) requestGraphQL(ctx context.Context, body []byte) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.cfg.Endpoint.URL)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.cfg.Endpoint.URL, err)
	}
	if err := statusError(resp.StatusCode()); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// statusError maps HTTP status codes onto the collection error taxonomy: 404
// means the paging ran past the last page, throttle and ban codes mark the
// source as blocking us, anything else non-2xx is unclassified.
func statusError(code int) error {
	switch {
	case code == http.StatusNotFound:
		return directory.ErrNoResults
	case code == http.StatusTooManyRequests || code == http.StatusForbidden:
		return fmt.Errorf("status %d: %w", code, directory.ErrBlocked)
	case code < 200 || code > 299:
		return fmt.Errorf("unexpected status %d", code)
	}
	return nil
}

func (c *APICollector) emitPage(added, total int) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(progress.Event{
		RunID:      c.cfg.RunID,
		TS:         c.clock.Now(),
		Stage:      progress.StageListingPage,
		Strategy:   string(directory.StrategyAPI),
		NewRecords: added,
		Total:      total,
	})
}
