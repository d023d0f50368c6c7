// Package source decides, once per run, how the directory gets collected:
// over one of the known API endpoints when any of them answers with
// companies, otherwise by driving the rendered listing in a browser.
package source

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/collect"
	"github.com/startuplens/ycscout/internal/directory"
)

// Config carries the probe list and HTTP posture for resolution.
type Config struct {
	Endpoints []string
	UserAgent string
	Timeout   time.Duration
}

// Resolver probes candidate endpoints in order and pins the first one that
// yields at least one company. The verdict is final for the run; nothing
// downstream re-resolves on failure.
type Resolver struct {
	cfg    Config
	client *resty.Client
	retry  *directory.ExponentialRetryPolicy
	pauser directory.Pauser
	logger *zap.Logger
}

var _ directory.Resolver = (*Resolver)(nil)

func New(cfg Config, retry *directory.ExponentialRetryPolicy, pauser directory.Pauser, logger *zap.Logger) *Resolver {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json, text/plain, */*").
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	if jar, err := cookiejar.New(nil); err == nil {
		client.SetCookieJar(jar)
	}
	return &Resolver{
		cfg:    cfg,
		client: client,
		retry:  retry,
		pauser: pauser,
		logger: logger,
	}
}

// Resolve implements directory.Resolver. Probe failures are never fatal;
// every endpoint striking out just degrades the run to the browser
// strategy. Only context cancellation surfaces as an error.
func (r *Resolver) Resolve(ctx context.Context) (directory.Selection, error) {
	for _, raw := range r.cfg.Endpoints {
		if err := ctx.Err(); err != nil {
			return directory.Selection{}, err
		}
		endpoint := classify(raw)
		count, err := r.probe(ctx, endpoint)
		if err != nil {
			r.logger.Debug("endpoint probe failed",
				zap.String("url", endpoint.URL),
				zap.Error(err))
			continue
		}
		if count == 0 {
			r.logger.Debug("endpoint answered without companies",
				zap.String("url", endpoint.URL))
			continue
		}
		r.logger.Info("directory api selected",
			zap.String("url", endpoint.URL),
			zap.String("kind", string(endpoint.Kind)),
			zap.Int("sample_size", count))
		return directory.Selection{Strategy: directory.StrategyAPI, Endpoint: endpoint}, nil
	}
	r.logger.Warn("no directory api reachable, falling back to browser strategy")
	return directory.Selection{Strategy: directory.StrategyBrowser}, nil
}

func (r *Resolver) probe(ctx context.Context, endpoint directory.Endpoint) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= r.retry.MaxAttempts(); attempt++ {
		count, err := r.probeOnce(ctx, endpoint)
		if err == nil {
			return count, nil
		}
		lastErr = err
		if !r.retry.ShouldRetry(err, attempt) {
			break
		}
		r.pauser.Pause(ctx, r.retry.Backoff(attempt))
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
	}
	return 0, lastErr
}

// probeOnce counts the companies one endpoint yields. REST endpoints get a
// bare GET; GraphQL endpoints get the pinned companies query.
func (r *Resolver) probeOnce(ctx context.Context, endpoint directory.Endpoint) (int, error) {
	req := r.client.R().SetContext(ctx)
	var (
		resp *resty.Response
		err  error
	)
	if endpoint.Kind == directory.KindGraphQL {
		body, berr := collect.GraphQLRequestBody()
		if berr != nil {
			return 0, berr
		}
		resp, err = req.SetHeader("Content-Type", "application/json").SetBody(body).Post(endpoint.URL)
	} else {
		resp, err = req.Get(endpoint.URL)
	}
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", endpoint.URL, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return 0, fmt.Errorf("probe %s: unexpected status %d", endpoint.URL, resp.StatusCode())
	}
	records, err := collect.ParsePayload(resp.Body())
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", endpoint.URL, err)
	}
	return len(records), nil
}

// classify keys the request style off the URL: anything mentioning graphql
// is queried by POST, the rest are plain REST collections.
func classify(url string) directory.Endpoint {
	kind := directory.KindREST
	if strings.Contains(strings.ToLower(url), "graphql") {
		kind = directory.KindGraphQL
	}
	return directory.Endpoint{URL: url, Kind: kind}
}
