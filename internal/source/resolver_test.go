package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/directory"
)

func newTestResolver(endpoints []string) *Resolver {
	return New(
		Config{Endpoints: endpoints, UserAgent: "test-agent", Timeout: 2 * time.Second},
		directory.NewExponentialRetryPolicy(1, time.Millisecond, time.Millisecond),
		directory.TimerPauser{},
		zap.NewNop(),
	)
}

func TestResolvePicksFirstEndpointWithCompanies(t *testing.T) {
	t.Parallel()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"companies": [{"name": "Acme", "batch": "W25"}]}`)
	}))
	defer healthy.Close()

	resolver := newTestResolver([]string{broken.URL, healthy.URL})
	sel, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, directory.StrategyAPI, sel.Strategy)
	require.Equal(t, healthy.URL, sel.Endpoint.URL)
	require.Equal(t, directory.KindREST, sel.Endpoint.Kind)
}

func TestResolveQueriesGraphQLByPost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, req["query"], "companies")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data": {"companies": [{"name": "Beta Labs"}]}}`)
	}))
	defer srv.Close()

	resolver := newTestResolver([]string{srv.URL + "/graphql"})
	sel, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, directory.StrategyAPI, sel.Strategy)
	require.Equal(t, directory.KindGraphQL, sel.Endpoint.Kind)
}

func TestResolveFallsBackToBrowser(t *testing.T) {
	t.Parallel()

	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	gone.Close()

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"companies": []}`)
	}))
	defer empty.Close()

	resolver := newTestResolver([]string{gone.URL, empty.URL})
	sel, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, directory.StrategyBrowser, sel.Strategy)
	require.Empty(t, sel.Endpoint.URL)
}

func TestResolveHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := newTestResolver([]string{"http://127.0.0.1:0/never"})
	_, err := resolver.Resolve(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	require.Equal(t, directory.KindGraphQL, classify("https://example.com/GraphQL").Kind)
	require.Equal(t, directory.KindREST, classify("https://example.com/v0.1/companies").Kind)
}
