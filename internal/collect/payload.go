package collect

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/startuplens/ycscout/internal/directory"
)

// GraphQLCompaniesQuery is the pinned query sent to GraphQL-capable
// directory endpoints.
const GraphQLCompaniesQuery = `query { companies { id name batch shortDescription website } }`

// GraphQLRequestBody returns the JSON request body for the companies query.
func GraphQLRequestBody() ([]byte, error) {
	return json.Marshal(map[string]string{"query": GraphQLCompaniesQuery})
}

// ParsePayload decodes a directory API response into startup records. The
// upstream schema is not pinned, so the decoder accepts the shapes seen in
// practice: a bare array, an object keyed companies/results/data, a GraphQL
// envelope, or failing those, the first array-valued field of the object.
// Entries without a usable company name are dropped.
func ParsePayload(body []byte) ([]directory.StartupRecord, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("decode directory payload: %w", err)
	}
	entries := companyEntries(root)
	records := make([]directory.StartupRecord, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if rec, ok := recordFromEntry(obj); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func companyEntries(root any) []any {
	switch v := root.(type) {
	case []any:
		return v
	case map[string]any:
		if data, ok := v["data"].(map[string]any); ok {
			if companies, ok := data["companies"].([]any); ok {
				return companies
			}
		}
		for _, key := range []string{"companies", "results", "data"} {
			if list, ok := v[key].([]any); ok {
				return list
			}
		}
		for _, value := range v {
			if list, ok := value.([]any); ok {
				return list
			}
		}
	}
	return nil
}

func recordFromEntry(entry map[string]any) (directory.StartupRecord, bool) {
	name := firstString(entry, "name", "companyName", "title")
	if name == "" {
		return directory.StartupRecord{}, false
	}
	rec := directory.StartupRecord{
		CompanyName: name,
		Batch:       normalizeBatch(firstString(entry, "batch", "ycBatch", "season")),
		Description: directory.TruncateDescription(firstString(entry, "shortDescription", "description", "pitch")),
		CompanyURL:  firstString(entry, "website", "url"),
	}
	rec.Founders, rec.FounderLinks = entryFounders(entry)
	return rec, true
}

func firstString(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := entry[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// normalizeBatch prefers the canonical short form (W25, S2021) when the raw
// value contains one, and otherwise passes the raw value through.
func normalizeBatch(raw string) string {
	if b := directory.ExtractBatch(raw); b != "" {
		return b
	}
	return raw
}

// entryFounders keeps the two slices index-aligned: a founder with no
// profile URL still occupies a slot in the links slice.
func entryFounders(entry map[string]any) (names, links []string) {
	raw, ok := entry["founders"].([]any)
	if !ok {
		return nil, nil
	}
	for _, item := range raw {
		switch f := item.(type) {
		case map[string]any:
			name := firstString(f, "name")
			if name == "" {
				continue
			}
			names = append(names, name)
			links = append(links, firstString(f, "linkedinUrl", "linkedin"))
		case string:
			if trimmed := strings.TrimSpace(f); trimmed != "" {
				names = append(names, trimmed)
				links = append(links, "")
			}
		}
	}
	return names, links
}
