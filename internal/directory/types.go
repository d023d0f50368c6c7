package directory

import (
	"time"
)

// Strategy identifies how the listing is collected for a run. The source
// resolver picks it exactly once at startup; nothing re-evaluates it per
// operation.
type Strategy string

// Collection strategies.
const (
	StrategyAPI     Strategy = "api"
	StrategyBrowser Strategy = "browser"
)

// EndpointKind distinguishes how a directory endpoint is queried.
type EndpointKind string

// Endpoint kinds.
const (
	KindREST    EndpointKind = "rest"
	KindGraphQL EndpointKind = "graphql"
)

// Endpoint is one candidate directory API address.
type Endpoint struct {
	URL  string
	Kind EndpointKind
}

// Selection is the resolver's verdict for a run. Endpoint is only meaningful
// when Strategy is StrategyAPI.
type Selection struct {
	Strategy Strategy
	Endpoint Endpoint
}

// DescriptionLimit caps the short description carried on a record, in runes.
const DescriptionLimit = 200

// StartupRecord is the unit of output: one company from the directory.
// FounderLinks is parallel to Founders; a miss leaves "" at that index.
type StartupRecord struct {
	CompanyName  string   `json:"company_name"`
	Batch        string   `json:"batch,omitempty"`
	Description  string   `json:"description,omitempty"`
	Founders     []string `json:"founders,omitempty"`
	FounderLinks []string `json:"founder_links,omitempty"`
	CompanyURL   string   `json:"company_url,omitempty"`
}

// HasFounders reports whether at least one founder name is present.
func (r StartupRecord) HasFounders() bool {
	return len(r.Founders) > 0
}

// RunSummary carries the totals logged at the end of a run and exposed on the
// ops progress endpoint.
type RunSummary struct {
	RunID           string        `json:"run_id"`
	Strategy        Strategy      `json:"strategy"`
	Records         int           `json:"records"`
	WithFounders    int           `json:"with_founders"`
	FounderLinks    int           `json:"founder_links"`
	ProfileSearches int           `json:"profile_searches"`
	Elapsed         time.Duration `json:"elapsed"`
}

// TruncateDescription trims a description to DescriptionLimit runes.
func TruncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= DescriptionLimit {
		return s
	}
	return string(runes[:DescriptionLimit])
}
