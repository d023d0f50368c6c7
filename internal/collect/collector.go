package collect

import "github.com/startuplens/ycscout/internal/directory"

// accumulator gathers records for one run, filtering duplicates by
// normalized company name and refusing additions past the target.
type accumulator struct {
	target  int
	seen    *directory.IdentitySet
	records []directory.StartupRecord
}

func newAccumulator(target int) *accumulator {
	return &accumulator{
		target: target,
		seen:   directory.NewIdentitySet(),
	}
}

// add reports whether the record was kept. Records without a company name,
// naming an already seen company, or arriving after the target is met are
// discarded.
func (a *accumulator) add(rec directory.StartupRecord) bool {
	if a.full() || rec.CompanyName == "" {
		return false
	}
	if !a.seen.MarkIfNew(directory.NormalizeCompanyKey(rec.CompanyName)) {
		return false
	}
	a.records = append(a.records, rec)
	return true
}

func (a *accumulator) addAll(recs []directory.StartupRecord) int {
	added := 0
	for _, rec := range recs {
		if a.full() {
			break
		}
		if a.add(rec) {
			added++
		}
	}
	return added
}

func (a *accumulator) full() bool { return len(a.records) >= a.target }

func (a *accumulator) count() int { return len(a.records) }
