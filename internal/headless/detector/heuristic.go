// Package detector decides when enrichment should promote a static fetch
// to a headless render.
package detector

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Config tunes the promotion heuristic.
type Config struct {
	// MinHTMLBytes is the document size below which a page is assumed to
	// be an unrendered app shell.
	MinHTMLBytes int
	// Keywords are lowercase phrases whose presence forces promotion,
	// e.g. "enable javascript" notices.
	Keywords []string
	// ContentSelectors name containers that carry real page content. A
	// document matching none of them gets promoted.
	ContentSelectors []string
}

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	minHTMLBytes int
	keywords     []string
	content      []cascadia.Sel
}

// NewHeuristic compiles the configured selectors. A zero MinHTMLBytes
// falls back to 2048.
func NewHeuristic(cfg Config) (*Heuristic, error) {
	if cfg.MinHTMLBytes == 0 {
		cfg.MinHTMLBytes = 2048
	}
	keywords := make([]string, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		if trimmed := strings.ToLower(strings.TrimSpace(kw)); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	content := make([]cascadia.Sel, 0, len(cfg.ContentSelectors))
	for _, expr := range cfg.ContentSelectors {
		sel, err := cascadia.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("content selector %q: %w", expr, err)
		}
		content = append(content, sel)
	}
	return &Heuristic{
		minHTMLBytes: cfg.MinHTMLBytes,
		keywords:     keywords,
		content:      content,
	}, nil
}

// ShouldPromote decides whether a headless render is required to see the
// page's content.
func (h *Heuristic) ShouldPromote(body []byte) bool {
	if len(body) == 0 {
		return true
	}
	lower := strings.ToLower(string(body))
	for _, kw := range h.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if len(body) < h.minHTMLBytes {
		return true
	}
	if len(h.content) == 0 {
		return false
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return true
	}
	for _, sel := range h.content {
		if cascadia.Query(doc, sel) != nil {
			return false
		}
	}
	return true
}
