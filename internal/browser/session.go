// Package browser manages the headless Chrome session shared by browser
// collection and enrichment promotion. One tab is reused for every
// navigation since the pipeline visits pages strictly one at a time.
package browser

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// renderSettle is how long a page gets to run scripts after the DOM is
// ready before its HTML is captured.
const renderSettle = 500 * time.Millisecond

// Config controls the Chrome process and its tabs.
type Config struct {
	Headless          bool
	ChromePath        string
	NoSandbox         bool
	UserAgent         string
	WindowWidth       int
	WindowHeight      int
	NavigationTimeout time.Duration
}

// Session owns the Chrome allocator plus one long-lived tab. The browser
// process itself starts lazily on the first navigation.
type Session struct {
	cfg         Config
	logger      *zap.Logger
	allocator   context.Context
	allocCancel context.CancelFunc

	mu        sync.Mutex
	tabCtx    context.Context
	tabCancel context.CancelFunc
}

// NewSession builds the exec allocator for the configured Chrome binary.
func NewSession(cfg Config, logger *zap.Logger) *Session {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	return &Session{
		cfg:         cfg,
		logger:      logger,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if bin := locateChrome(cfg.ChromePath); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}
	return opts
}

// locateChrome resolves the browser binary: the configured path wins, then
// the usual names on PATH. Empty means chromedp falls back to its own
// discovery.
func locateChrome(configured string) string {
	if configured != "" {
		return configured
	}
	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// Close tears down the tab and the Chrome process.
func (s *Session) Close() {
	s.mu.Lock()
	if s.tabCancel != nil {
		s.tabCancel()
		s.tabCtx, s.tabCancel = nil, nil
	}
	s.mu.Unlock()
	s.allocCancel()
}

// Navigate loads url in the session tab and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Evaluate runs a JavaScript expression in the current page. Pass a nil out
// to discard the result.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	if err := s.run(ctx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// Render navigates to url, lets scripts settle, and returns the resulting
// DOM serialized as HTML.
func (s *Session) Render(ctx context.Context, url string) (string, error) {
	var html string
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(renderSettle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tab := s.tab()
	runCtx, cancel := context.WithTimeout(tab, s.navTimeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, append([]chromedp.Action{s.setupAction()}, actions...)...)
}

// setupAction enables the network domain and applies any user-agent
// override. It runs ahead of every action batch; both calls are idempotent
// on a live tab.
func (s *Session) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (s *Session) tab() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tabCtx == nil {
		s.tabCtx, s.tabCancel = chromedp.NewContext(s.allocator,
			chromedp.WithLogf(func(string, ...any) {}))
		s.logger.Debug("browser tab created")
	}
	return s.tabCtx
}

func (s *Session) navTimeout() time.Duration {
	if s.cfg.NavigationTimeout > 0 {
		return s.cfg.NavigationTimeout
	}
	return 45 * time.Second
}
