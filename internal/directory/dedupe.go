package directory

import "strings"

// NormalizeCompanyKey reduces a company name to its duplicate-detection
// identity: case-folded with runs of whitespace collapsed.
func NormalizeCompanyKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// IdentitySet tracks companies already collected so that scroll overlap and
// page overlap never count the same company twice. The pipeline is
// single-threaded, so no locking is needed.
type IdentitySet struct {
	seen map[string]struct{}
}

// NewIdentitySet returns an empty set.
func NewIdentitySet() *IdentitySet {
	return &IdentitySet{seen: make(map[string]struct{})}
}

// MarkIfNew records the company if it has not been seen before and returns
// true. Empty names are never new.
func (s *IdentitySet) MarkIfNew(name string) bool {
	key := NormalizeCompanyKey(name)
	if key == "" {
		return false
	}
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct companies seen.
func (s *IdentitySet) Len() int {
	return len(s.seen)
}
