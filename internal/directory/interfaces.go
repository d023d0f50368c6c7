package directory

import (
	"context"
	"time"
)

// Resolver picks the collection strategy for a run.
type Resolver interface {
	Resolve(ctx context.Context) (Selection, error)
}

// Collector gathers listing records until the target count or the stagnation
// threshold is reached, whichever comes first. Returned records are already
// deduplicated by company identity.
type Collector interface {
	Collect(ctx context.Context) ([]StartupRecord, error)
}

// Enricher fills founder names on a record from its detail page. A record
// that already carries founders is left untouched.
type Enricher interface {
	Enrich(ctx context.Context, rec *StartupRecord) error
}

// ProfileFinder locates a public profile URL for one founder. A miss returns
// "" with a nil error; only transport-level trouble surfaces as an error.
type ProfileFinder interface {
	Find(ctx context.Context, founder, company string) (string, error)
}

// Exporter writes the final record set somewhere useful.
type Exporter interface {
	Export(ctx context.Context, records []StartupRecord) error
}

// Pauser sleeps between paced operations, honoring cancellation.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Hasher computes digests for snapshot object naming.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
