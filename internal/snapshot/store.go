// Package snapshot archives raw page HTML so extraction misses can be
// replayed offline against the exact bytes the scraper saw.
package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/startuplens/ycscout/internal/directory"
)

// Store persists one captured page and returns a URI usable in log lines.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

var invalidObjectChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectName derives a stable, filesystem-safe object name for a page:
// date partition, sanitized host and path, and a digest prefix so two
// captures of the same URL on the same day do not collide silently.
func ObjectName(clock directory.Clock, hasher directory.Hasher, pageURL string, body []byte) string {
	digest, err := hasher.Hash(body)
	if err != nil || len(digest) < 12 {
		digest = "nodigest0000"
	}
	host, path := "unknown", "root"
	if u, parseErr := url.Parse(pageURL); parseErr == nil {
		if h := u.Hostname(); h != "" {
			host = invalidObjectChars.ReplaceAllString(h, "_")
		}
		if p := strings.Trim(u.EscapedPath(), "/"); p != "" {
			path = invalidObjectChars.ReplaceAllString(p, "_")
		}
	}
	day := clock.Now().Format("2006-01-02")
	return fmt.Sprintf("%s/%s_%s_%s.html", day, host, path, digest[:12])
}
