package directory

import (
	"regexp"
	"strings"
)

// Cohort codes look like W25, S2021, F24. Matching is case-insensitive; the
// stored value is always uppercase.
var batchPattern = regexp.MustCompile(`(?i)(W|S|F)\d{2,4}`)

// ExtractBatch returns the first cohort code found in text, uppercased, or ""
// when no code is present. Card parsing also uses it to keep lines carrying a
// batch label out of the description field.
func ExtractBatch(text string) string {
	m := batchPattern.FindString(text)
	if m == "" {
		return ""
	}
	return strings.ToUpper(m)
}
