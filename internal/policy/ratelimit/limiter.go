// Package ratelimit paces outbound search traffic with a token bucket
// plus a random jitter slice on top of each wait.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/startuplens/ycscout/internal/directory"
)

// Config controls query pacing.
type Config struct {
	// Interval is the steady minimum gap between queries. Zero disables
	// the token bucket and leaves only jitter.
	Interval time.Duration
	// Jitter bounds the extra random delay added after each wait.
	Jitter time.Duration
}

// Pacer spaces out queries so a search front end sees a human-ish
// cadence rather than a burst.
type Pacer struct {
	limiter *rate.Limiter
	jitter  time.Duration
}

// New builds a Pacer from cfg.
func New(cfg Config) *Pacer {
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
		jitter:  cfg.Jitter,
	}
}

// Wait blocks until the next query slot opens, then sleeps a random
// jitter slice. It returns early with the context error when ctx is
// cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacing wait: %w", err)
	}
	delay := directory.Jitter(p.jitter)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
