// Package ops serves the operational HTTP surface: liveness, readiness,
// Prometheus metrics, and a JSON view of the live run state.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/progress/sinks"
	"github.com/startuplens/ycscout/internal/store"
)

// Server wires the ops routes onto a chi router. It never touches the
// scrape pipeline; everything it serves comes from sinks and the run
// repository.
type Server struct {
	router   chi.Router
	state    *sinks.StateSink
	runs     store.RunRepository
	logger   *zap.Logger
	requests *prometheus.CounterVec
}

// NewServer builds the ops router. A nil registry falls back to the
// default Prometheus registerer and gatherer; a nil repository turns the
// run history endpoints into 503s.
func NewServer(state *sinks.StateSink, runs store.RunRepository, registry *prometheus.Registry, logger *zap.Logger) (*Server, error) {
	s := &Server{
		state:  state,
		runs:   runs,
		logger: logger,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ycscout_ops_requests_total",
			Help: "Ops endpoint requests partitioned by route and status code.",
		}, []string{"route", "code"}),
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gather prometheus.Gatherer = prometheus.DefaultGatherer
	if registry != nil {
		reg = registry
		gather = registry
	}
	if err := reg.Register(s.requests); err != nil {
		return nil, fmt.Errorf("register ops metrics: %w", err)
	}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.instrument)
	r.Use(s.recoverer)
	r.Use(timeout(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gather, promhttp.HandlerOpts{}))
	r.Get("/progress", s.progress)
	r.Get("/runs", s.listRuns)
	r.Get("/runs/{run_id}", s.getRun)

	s.router = r
	return s, nil
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The scraper has no warm-up phase; reachable means ready.
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) progress(w http.ResponseWriter, _ *http.Request) {
	if s.state == nil {
		s.writeJSON(w, http.StatusOK, sinks.RunState{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write json failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Listener owns the ops http.Server lifecycle. It is optional; with no
// listen address configured the scraper runs without one.
type Listener struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewListener wraps handler in an http.Server bound to addr.
func NewListener(addr string, handler http.Handler, logger *zap.Logger) *Listener {
	return &Listener{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background. A failure to bind is logged rather than
// failing the run; the scrape does not depend on the ops surface.
func (l *Listener) Start() {
	go func() {
		l.logger.Info("ops listener started", zap.String("addr", l.srv.Addr))
		if err := l.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("ops listener error", zap.Error(err))
		}
	}()
}

// Shutdown drains in-flight requests until ctx expires.
func (l *Listener) Shutdown(ctx context.Context) error {
	if err := l.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("ops shutdown: %w", err)
	}
	return nil
}
