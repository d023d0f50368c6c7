package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/clock/system"
	"github.com/startuplens/ycscout/internal/policy/ratelimit"
	"github.com/startuplens/ycscout/internal/progress"
)

const resultsPage = `<html><body><div class="results">
<div class="result"><a class="result__a" href="linkedin.com/in/broken">Broken relative link</a></div>
<div class="result"><a class="result__a" href="/l/?uddg=https://www.linkedin.com/in/jane-doe/&rut=bb">Jane Doe | LinkedIn</a></div>
<div class="result"><a class="result__a" href="https://www.linkedin.com/in/other-person">Other Person</a></div>
</div></body></html>`

type recordingEmitter struct {
	events []progress.Event
}

func (r *recordingEmitter) Emit(ev progress.Event) {
	r.events = append(r.events, ev)
}

func newFinder(t *testing.T, baseURL string, mutate func(*Config), emitter progress.Emitter) *Finder {
	t.Helper()
	cfg := Config{
		BaseURL:        baseURL,
		QueryParam:     "q",
		UserAgent:      "ycscout-test",
		Timeout:        5 * time.Second,
		MaxAttempts:    2,
		BlockThreshold: 3,
		RunID:          "run-1",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, ratelimit.New(ratelimit.Config{}), system.Clock{}, emitter, zap.NewNop())
}

func TestFindReturnsFirstUsableProfileLink(t *testing.T) {
	var gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	emitter := &recordingEmitter{}
	f := newFinder(t, srv.URL, nil, emitter)

	link, err := f.Find(context.Background(), "Jane Doe", "Acme")
	require.NoError(t, err)
	require.Equal(t, "https://www.linkedin.com/in/jane-doe/", link)
	require.Equal(t, "Jane Doe Acme LinkedIn", gotQuery)
	require.Equal(t, "ycscout-test", gotAgent)

	require.Len(t, emitter.events, 1)
	ev := emitter.events[0]
	require.NoError(t, ev.Validate())
	require.Equal(t, progress.StageProfileSearch, ev.Stage)
	require.Equal(t, "Jane Doe", ev.Founder)
	require.True(t, ev.Found)
	require.Equal(t, link, ev.URL)
}

func TestFindMissIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="results">nothing relevant</div></body></html>`))
	}))
	defer srv.Close()

	emitter := &recordingEmitter{}
	f := newFinder(t, srv.URL, nil, emitter)

	link, err := f.Find(context.Background(), "Jane Doe", "Acme")
	require.NoError(t, err)
	require.Empty(t, link)

	require.Len(t, emitter.events, 1)
	require.False(t, emitter.events[0].Found)
}

func TestFindRetriesAfterTransientFailure(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	f := newFinder(t, srv.URL, nil, &recordingEmitter{})

	link, err := f.Find(context.Background(), "Jane Doe", "Acme")
	require.NoError(t, err)
	require.Equal(t, "https://www.linkedin.com/in/jane-doe/", link)
	require.EqualValues(t, 2, requests.Load())
}

func TestFindSearchFailureIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	emitter := &recordingEmitter{}
	f := newFinder(t, srv.URL, nil, emitter)

	link, err := f.Find(context.Background(), "Jane Doe", "Acme")
	require.NoError(t, err)
	require.Empty(t, link)

	require.Len(t, emitter.events, 1)
	require.False(t, emitter.events[0].Found)
	require.Contains(t, emitter.events[0].Note, "unexpected search status")
}

func TestFindLatchesAfterConsecutiveBlocks(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	emitter := &recordingEmitter{}
	f := newFinder(t, srv.URL, func(cfg *Config) {
		cfg.MaxAttempts = 1
		cfg.BlockThreshold = 2
	}, emitter)

	for i := 0; i < 3; i++ {
		link, err := f.Find(context.Background(), "Jane Doe", "Acme")
		require.NoError(t, err)
		require.Empty(t, link)
	}

	// The third call is served by the latch, not the network.
	require.EqualValues(t, 2, requests.Load())
	require.Len(t, emitter.events, 2)
}

func TestFindTreatsChallengePageAsBlock(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(`<html><head><script src="anomaly-modal.js"></script></head><body></body></html>`))
	}))
	defer srv.Close()

	f := newFinder(t, srv.URL, func(cfg *Config) {
		cfg.MaxAttempts = 1
		cfg.BlockThreshold = 1
	}, &recordingEmitter{})

	link, err := f.Find(context.Background(), "Jane Doe", "Acme")
	require.NoError(t, err)
	require.Empty(t, link)

	_, err = f.Find(context.Background(), "Bob Jones", "Acme")
	require.NoError(t, err)
	require.EqualValues(t, 1, requests.Load())
}

func TestFindHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	f := newFinder(t, srv.URL, nil, &recordingEmitter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Find(ctx, "Jane Doe", "Acme")
	require.ErrorIs(t, err, context.Canceled)
}

func TestCleanProfileURL(t *testing.T) {
	cases := []struct {
		name string
		href string
		want string
	}{
		{
			name: "direct link keeps leading query only",
			href: "https://www.linkedin.com/in/jane-doe/?original=x&trk=y",
			want: "https://www.linkedin.com/in/jane-doe/?original=x",
		},
		{
			name: "encoded redirect wrapper",
			href: "/l/?uddg=https%3A%2F%2Fwww.linkedin.com%2Fin%2Fjane%2F&rut=abc",
			want: "https://www.linkedin.com/in/jane/",
		},
		{
			name: "q parameter wrapper",
			href: "https://www.google.com/url?q=https://uk.linkedin.com/in/sam&sa=U",
			want: "https://uk.linkedin.com/in/sam",
		},
		{
			name: "wrong host",
			href: "https://twitter.com/jane",
			want: "",
		},
		{
			name: "company page is not a profile",
			href: "https://www.linkedin.com/company/acme",
			want: "",
		},
		{
			name: "relative href without wrapper",
			href: "linkedin.com/in/jane",
			want: "",
		},
		{
			name: "empty",
			href: "",
			want: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CleanProfileURL(tc.href))
		})
	}
}
