package collect

import (
	"strings"
	"unicode/utf8"

	"github.com/startuplens/ycscout/internal/directory"
)

// minDescriptionRunes is the shortest line treated as a description
// candidate when parsing a card. Shorter lines are tags or counters.
const minDescriptionRunes = 10

// Card is the raw material extracted from one listing element in the
// rendered page: its visible text plus the detail link, if any.
type Card struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// ParseCard turns a listing card into a record. Listing cards render as
// stacked lines: company name first, then some mix of batch tag, location,
// and pitch in an order that shifts between page redesigns, so everything
// after the name is matched by shape rather than position. Cards with no
// text yield ok=false.
func ParseCard(card Card, baseURL string) (rec directory.StartupRecord, ok bool) {
	lines := splitLines(card.Text)
	if len(lines) == 0 {
		return directory.StartupRecord{}, false
	}
	rec.CompanyName = lines[0]
	for _, line := range lines {
		if b := directory.ExtractBatch(line); b != "" {
			rec.Batch = b
			break
		}
	}
	for _, line := range lines[1:] {
		if directory.ExtractBatch(line) == "" && utf8.RuneCountInString(line) > minDescriptionRunes {
			rec.Description = directory.TruncateDescription(line)
			break
		}
	}
	rec.CompanyURL = detailURL(card.Href, baseURL)
	return rec, true
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// detailURL resolves a card href against the directory host. Absolute links
// are kept only when they point at a company detail page; anything else is
// noise from ads or footer chrome.
func detailURL(href, baseURL string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "/"):
		return strings.TrimSuffix(baseURL, "/") + href
	case strings.Contains(href, "ycombinator.com/companies/"):
		return href
	}
	return ""
}
