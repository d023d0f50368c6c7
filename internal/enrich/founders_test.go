package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var founderGroups = []string{
	"div[class*='founder'] h3, div[class*='founder'] strong",
	"div[class*='team'] h3",
}

func newExtractor(t *testing.T) *FounderExtractor {
	t.Helper()
	e, err := NewFounderExtractor(founderGroups, 3)
	require.NoError(t, err)
	return e
}

func TestNewFounderExtractorValidation(t *testing.T) {
	t.Parallel()

	_, err := NewFounderExtractor(founderGroups, 0)
	require.Error(t, err)

	_, err = NewFounderExtractor([]string{"div[broken"}, 3)
	require.Error(t, err)
}

func TestFromSelectorsFirstGroupWins(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<div class="founders-grid">
			<h3>Ada Lovelace</h3>
			<strong>Grace Hopper</strong>
		</div>
		<div class="team-section"><h3>Random Employee</h3></div>
	</body></html>`)
	names := newExtractor(t).FromSelectors(body)
	require.Equal(t, []string{"Ada Lovelace", "Grace Hopper"}, names)
}

func TestFromSelectorsFallsToNextGroup(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<div class="team-roster"><h3>Alan Turing</h3></div>
	</body></html>`)
	names := newExtractor(t).FromSelectors(body)
	require.Equal(t, []string{"Alan Turing"}, names)
}

func TestFromSelectorsFiltersNonNames(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body><div class="founder-list">
		<h3>Ada</h3>
		<h3>` + strings.Repeat("Very Long Heading ", 5) + `</h3>
		<h3>Ada Lovelace</h3>
		<h3>Ada   Lovelace</h3>
	</div></body></html>`)
	names := newExtractor(t).FromSelectors(body)
	require.Equal(t, []string{"Ada Lovelace"}, names,
		"one-word and over-long strings are rejected, whitespace variants dedupe")
}

func TestFromSelectorsRespectsCap(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body><div class="founder-list">
		<h3>Ada Lovelace</h3>
		<h3>Grace Hopper</h3>
		<h3>Alan Turing</h3>
		<h3>Katherine Johnson</h3>
	</div></body></html>`)
	names := newExtractor(t).FromSelectors(body)
	require.Len(t, names, 3)
}

func TestFallbackNamesTakesLeadingPairs(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<script>var Fake Name = 1;</script>
		<p>Acme was started by Jane Smith and Bob Jones after they met
		John Doe at a hackathon.</p>
	</body></html>`)
	names := newExtractor(t).FallbackNames(body)
	require.Equal(t, []string{"Jane Smith", "Bob Jones"}, names,
		"script text is ignored and the cap is two")
}

func TestFallbackNamesWindowBound(t *testing.T) {
	t.Parallel()

	padding := strings.Repeat("lowercase filler text with no names at all. ", 60)
	body := []byte(`<html><body><p>` + padding + `Jane Smith</p></body></html>`)
	require.Greater(t, len(padding), fallbackScanRunes)
	names := newExtractor(t).FallbackNames(body)
	require.Empty(t, names, "names past the scan window are not picked up")
}

func TestAcceptName(t *testing.T) {
	t.Parallel()

	name, ok := acceptName("  Jane   Smith ")
	require.True(t, ok)
	require.Equal(t, "Jane Smith", name)

	_, ok = acceptName("Jane")
	require.False(t, ok)

	_, ok = acceptName(strings.Repeat("Jane Smith ", 6))
	require.False(t, ok)
}
