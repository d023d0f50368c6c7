package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testHeuristic(t *testing.T) *Heuristic {
	t.Helper()
	h, err := NewHeuristic(Config{
		MinHTMLBytes:     256,
		Keywords:         []string{"You need to enable JavaScript"},
		ContentSelectors: []string{"main", "div[class*='company']"},
	})
	require.NoError(t, err)
	return h
}

func pad(doc string, size int) []byte {
	if len(doc) >= size {
		return []byte(doc)
	}
	return []byte(doc + "<!-- " + strings.Repeat("x", size-len(doc)) + " -->")
}

func TestShouldPromoteEmptyBody(t *testing.T) {
	t.Parallel()
	require.True(t, testHeuristic(t).ShouldPromote(nil))
}

func TestShouldPromoteJavaScriptNotice(t *testing.T) {
	t.Parallel()
	body := pad(`<html><body><main>you need to enable javascript to run this app</main></body></html>`, 512)
	require.True(t, testHeuristic(t).ShouldPromote(body), "notice wins even when content containers exist")
}

func TestShouldPromoteTinyDocument(t *testing.T) {
	t.Parallel()
	require.True(t, testHeuristic(t).ShouldPromote([]byte(`<html><body></body></html>`)))
}

func TestShouldPromoteMissingContentContainers(t *testing.T) {
	t.Parallel()
	body := pad(`<html><body><div id="root"></div></body></html>`, 512)
	require.True(t, testHeuristic(t).ShouldPromote(body))
}

func TestShouldNotPromoteRenderedPage(t *testing.T) {
	t.Parallel()
	body := pad(`<html><body><div class="company-profile"><h1>Acme</h1></div></body></html>`, 512)
	require.False(t, testHeuristic(t).ShouldPromote(body))
}

func TestShouldNotPromoteWithoutContentRules(t *testing.T) {
	t.Parallel()
	h, err := NewHeuristic(Config{MinHTMLBytes: 16})
	require.NoError(t, err)
	require.False(t, h.ShouldPromote(pad(`<html><body><p>hi</p></body></html>`, 64)))
}

func TestNewHeuristicRejectsBadSelector(t *testing.T) {
	t.Parallel()
	_, err := NewHeuristic(Config{ContentSelectors: []string{"div[unterminated"}})
	require.Error(t, err)
}
