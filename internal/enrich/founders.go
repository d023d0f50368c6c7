package enrich

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// namePattern matches capitalized word pairs, the loosest plausible shape
// of a person's name in page prose.
var namePattern = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)

const (
	// maxNameRunes rejects selector hits that are clearly sentences.
	maxNameRunes = 50
	// fallbackScanRunes bounds how much page text the name-shaped scan
	// reads; founder mentions live near the top of a profile.
	fallbackScanRunes = 2000
	// fallbackNameCap limits how many guessed names the scan yields.
	fallbackNameCap = 2
)

// FounderExtractor pulls founder names out of detail-page HTML. Selector
// groups are tried in order and the first group producing an accepted
// name wins; the capitalized-pair scan is a separate last resort the
// enricher invokes only when every group missed on every body it has.
type FounderExtractor struct {
	groups []string
	max    int
}

// NewFounderExtractor validates the selector groups up front so a config
// typo fails at startup, not mid-run.
func NewFounderExtractor(groups []string, maxFounders int) (*FounderExtractor, error) {
	if maxFounders <= 0 {
		return nil, fmt.Errorf("max founders must be > 0")
	}
	for _, group := range groups {
		if _, err := cascadia.ParseGroup(group); err != nil {
			return nil, fmt.Errorf("founder selector %q: %w", group, err)
		}
	}
	return &FounderExtractor{groups: groups, max: maxFounders}, nil
}

// FromSelectors returns up to the configured number of founder names, or
// nil when no selector group hits.
func (e *FounderExtractor) FromSelectors(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	for _, group := range e.groups {
		if names := e.collect(doc, group); len(names) > 0 {
			return names
		}
	}
	return nil
}

func (e *FounderExtractor) collect(doc *goquery.Document, group string) []string {
	var names []string
	doc.Find(group).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(names) >= e.max {
			return false
		}
		if name, ok := acceptName(sel.Text()); ok && !containsName(names, name) {
			names = append(names, name)
		}
		return true
	})
	return names
}

// FallbackNames scans the leading page text for name-shaped word pairs.
// It is deliberately greedy and capped low: better two guesses than a
// page of navigation labels.
func (e *FounderExtractor) FallbackNames(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	doc.Find("script, style, noscript").Remove()
	text := doc.Find("body").Text()
	if runes := []rune(text); len(runes) > fallbackScanRunes {
		text = string(runes[:fallbackScanRunes])
	}
	var names []string
	for _, m := range namePattern.FindAllString(text, -1) {
		if !containsName(names, m) {
			names = append(names, m)
		}
		if len(names) == fallbackNameCap {
			break
		}
	}
	return names
}

// acceptName normalizes whitespace and keeps only multi-word strings
// short enough to be a person's name.
func acceptName(raw string) (string, bool) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return "", false
	}
	name := strings.Join(fields, " ")
	if utf8.RuneCountInString(name) >= maxNameRunes {
		return "", false
	}
	return name, true
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
