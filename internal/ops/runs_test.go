package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/store"
)

const testRunID = "2b8a8f3e-9a1d-4c5f-8d7b-0c6e2f4a1b3c"

func newRunsServer(t *testing.T, repo store.RunRepository) *Server {
	t.Helper()
	srv, err := NewServer(nil, repo, prometheus.NewRegistry(), zap.NewNop())
	require.NoError(t, err)
	return srv
}

func TestListRunsReturnsHistory(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)
	repo := &stubRunRepo{
		runs: []store.Run{
			{RunID: testRunID, Strategy: "api", StartedAt: started, Status: store.RunRunning, Records: 80},
		},
	}
	srv := newRunsServer(t, repo)

	rec := get(srv, "/runs?status=running&limit=10&offset=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []runDTO `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	require.Equal(t, testRunID, body.Runs[0].RunID)
	require.Equal(t, "running", body.Runs[0].Status)
	require.Equal(t, int64(80), body.Runs[0].Records)

	require.NotNil(t, repo.lastStatus)
	require.Equal(t, store.RunRunning, *repo.lastStatus)
	require.Equal(t, 10, repo.lastLimit)
	require.Equal(t, 5, repo.lastOffset)
}

func TestListRunsDefaultsAndClampsLimit(t *testing.T) {
	t.Parallel()

	repo := &stubRunRepo{}
	srv := newRunsServer(t, repo)

	rec := get(srv, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, repo.lastStatus)
	require.Equal(t, defaultRunLimit, repo.lastLimit)

	rec = get(srv, "/runs?limit=99999")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, maxRunLimit, repo.lastLimit)
}

func TestListRunsRejectsBadParams(t *testing.T) {
	t.Parallel()

	srv := newRunsServer(t, &stubRunRepo{})

	for _, path := range []string{
		"/runs?limit=zero",
		"/runs?limit=-1",
		"/runs?offset=-2",
		"/runs?status=paused",
	} {
		rec := get(srv, path)
		require.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
	}
}

func TestListRunsWithoutRepository(t *testing.T) {
	t.Parallel()

	srv := newRunsServer(t, nil)
	rec := get(srv, "/runs")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "run repository unavailable")
}

func TestListRunsSurfacesRepositoryFailure(t *testing.T) {
	t.Parallel()

	srv := newRunsServer(t, &stubRunRepo{fail: true})
	rec := get(srv, "/runs")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRunByID(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)
	finished := started.Add(time.Hour)
	msg := "chrome exited"
	repo := &stubRunRepo{
		runs: []store.Run{{
			RunID:           testRunID,
			Strategy:        "browser",
			StartedAt:       started,
			FinishedAt:      &finished,
			Status:          store.RunError,
			ErrorMessage:    &msg,
			Records:         12,
			Founders:        9,
			ProfileSearches: 4,
			ProfilesFound:   3,
		}},
	}
	srv := newRunsServer(t, repo)

	rec := get(srv, "/runs/"+testRunID)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Run runDTO `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, testRunID, body.Run.RunID)
	require.Equal(t, "error", body.Run.Status)
	require.NotNil(t, body.Run.FinishedAt)
	require.NotNil(t, body.Run.Error)
	require.Equal(t, "chrome exited", *body.Run.Error)
	require.Equal(t, int64(3), body.Run.ProfilesFound)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	srv := newRunsServer(t, &stubRunRepo{})
	rec := get(srv, "/runs/9f4e9d20-0000-4000-8000-000000000000")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "run not found")
}

func TestGetRunRejectsMalformedID(t *testing.T) {
	t.Parallel()

	srv := newRunsServer(t, &stubRunRepo{})
	rec := get(srv, "/runs/not-a-uuid")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid run_id")
}

type stubRunRepo struct {
	fail       bool
	runs       []store.Run
	lastStatus *store.RunStatus
	lastLimit  int
	lastOffset int
}

func (s *stubRunRepo) StartRun(context.Context, string, string, time.Time) error {
	return errors.New("not implemented")
}

func (s *stubRunRepo) CompleteRun(context.Context, string, time.Time, store.RunStatus, int64, *string) error {
	return errors.New("not implemented")
}

func (s *stubRunRepo) AddCounters(context.Context, string, int64, int64, int64, int64, time.Time) error {
	return errors.New("not implemented")
}

func (s *stubRunRepo) GetRun(_ context.Context, runID string) (store.Run, error) {
	if s.fail {
		return store.Run{}, errors.New("boom")
	}
	for _, run := range s.runs {
		if run.RunID == runID {
			return run, nil
		}
	}
	return store.Run{}, store.ErrNotFound
}

func (s *stubRunRepo) ListRuns(_ context.Context, status *store.RunStatus, limit, offset int) ([]store.Run, error) {
	if s.fail {
		return nil, errors.New("boom")
	}
	s.lastStatus = status
	s.lastLimit = limit
	s.lastOffset = offset
	return s.runs, nil
}
