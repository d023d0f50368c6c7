package collect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/startuplens/ycscout/internal/directory"
)

func TestParsePayloadShapes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "bare array",
			body: `[{"name": "Acme"}, {"name": "Beta"}]`,
			want: []string{"Acme", "Beta"},
		},
		{
			name: "companies key",
			body: `{"companies": [{"name": "Acme"}]}`,
			want: []string{"Acme"},
		},
		{
			name: "results key",
			body: `{"results": [{"name": "Beta"}]}`,
			want: []string{"Beta"},
		},
		{
			name: "data key holding a list",
			body: `{"data": [{"name": "Gamma"}]}`,
			want: []string{"Gamma"},
		},
		{
			name: "graphql envelope",
			body: `{"data": {"companies": [{"name": "Delta", "batch": "S24"}]}}`,
			want: []string{"Delta"},
		},
		{
			name: "unknown key with list value",
			body: `{"page": 1, "startups": [{"name": "Epsilon"}]}`,
			want: []string{"Epsilon"},
		},
		{
			name: "non-object entries skipped",
			body: `[42, "noise", {"name": "Acme"}]`,
			want: []string{"Acme"},
		},
		{
			name: "object with no list",
			body: `{"count": 0}`,
			want: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			records, err := ParsePayload([]byte(tc.body))
			require.NoError(t, err)
			names := make([]string, 0, len(records))
			for _, rec := range records {
				names = append(names, rec.CompanyName)
			}
			if tc.want == nil {
				require.Empty(t, names)
				return
			}
			require.Equal(t, tc.want, names)
		})
	}
}

func TestParsePayloadRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	_, err := ParsePayload([]byte(`{"companies": [`))
	require.Error(t, err)
}

func TestParsePayloadFieldFallbacks(t *testing.T) {
	t.Parallel()
	body := `[
		{"companyName": "Acme", "ycBatch": "w25", "pitch": "Forklifts as a service", "url": "https://example.com/acme"},
		{"title": "Beta Labs", "season": "Summer 2021", "description": "Robotic kitchens"},
		{"batch": "S24", "shortDescription": "no name, dropped"}
	]`
	records, err := ParsePayload([]byte(body))
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "Acme", records[0].CompanyName)
	require.Equal(t, "W25", records[0].Batch)
	require.Equal(t, "Forklifts as a service", records[0].Description)
	require.Equal(t, "https://example.com/acme", records[0].CompanyURL)

	require.Equal(t, "Beta Labs", records[1].CompanyName)
	require.Equal(t, "Summer 2021", records[1].Batch, "raw batch passes through when no code is embedded")
	require.Equal(t, "Robotic kitchens", records[1].Description)
}

func TestParsePayloadTruncatesDescription(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", directory.DescriptionLimit+40)
	records, err := ParsePayload([]byte(`[{"name": "Acme", "description": "` + long + `"}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].Description, directory.DescriptionLimit)
}

func TestParsePayloadFounders(t *testing.T) {
	t.Parallel()
	body := `[{
		"name": "Acme",
		"founders": [
			{"name": "Ada Lovelace", "linkedinUrl": "https://linkedin.com/in/ada"},
			{"name": "Grace Hopper", "linkedin": "https://linkedin.com/in/grace"},
			{"name": "  "},
			"Alan Turing"
		]
	}]`
	records, err := ParsePayload([]byte(body))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, []string{"Ada Lovelace", "Grace Hopper", "Alan Turing"}, rec.Founders)
	require.Equal(t, []string{
		"https://linkedin.com/in/ada",
		"https://linkedin.com/in/grace",
		"",
	}, rec.FounderLinks, "links stay index-aligned with founders")
	require.True(t, rec.HasFounders())
}

func TestGraphQLRequestBody(t *testing.T) {
	t.Parallel()
	body, err := GraphQLRequestBody()
	require.NoError(t, err)
	require.Contains(t, string(body), `"query"`)
	require.Contains(t, string(body), "shortDescription")
}
