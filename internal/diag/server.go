// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package diag serves the local diagnostics listener: Prometheus metrics,
// health, loading progress and the load journal.
package diag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/cursedearth/engine/internal/journal"
	"github.com/cursedearth/engine/internal/health"
	"github.com/cursedearth/engine/internal/loader"
	cedlog "github.com/cursedearth/engine/internal/log"
)

const (
	defaultLoadsLimit = 50
	maxLoadsLimit     = 500
	shutdownTimeout   = 5 * time.Second
)

// Status is the engine view served on /progress.
type Status struct {
	State    string            `json:"state"`
	Progress float64           `json:"progress"`
	Jobs     loader.JobCounts  `json:"jobs"`
	Tasks    []loader.TaskInfo `json:"tasks"`
	Entities int               `json:"entities"`
	Sectors  int               `json:"sectors"`
}

// Source reports engine status. Implementations must be safe to call from
// HTTP handler goroutines.
type Source interface {
	Status() Status
}

// LoadLister lists journal entries.
type LoadLister interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Config configures the listener.
type Config struct {
	Listen    string
	RateLimit int // requests per minute per client IP
	Tracing   bool
	Version   string
	// Checks run on /readyz and on /healthz?verbose=true in addition to
	// the scene check.
	Checks []health.Checker
}

// Server is the diagnostics HTTP server.
type Server struct {
	cfg     Config
	source  Source
	loads   LoadLister
	health  *health.Manager
	handler http.Handler
	logger  zerolog.Logger
}

// New builds a Server. loads may be nil when the journal is disabled.
func New(cfg Config, source Source, loads LoadLister) *Server {
	s := &Server{
		cfg:    cfg,
		source: source,
		loads:  loads,
		health: health.NewManager(cfg.Version),
		logger: cedlog.WithComponent("diag"),
	}
	s.health.Register(health.CheckFunc("scene", s.checkScene))
	s.health.Register(cfg.Checks...)
	s.handler = s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if s.cfg.RateLimit > 0 {
		r.Use(rateLimit(s.cfg.RateLimit, time.Minute))
	}

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Get("/progress", s.handleProgress)
	r.Get("/loads", s.handleLoads)
	r.Handle("/metrics", promhttp.Handler())

	if !s.cfg.Tracing {
		return r
	}
	return otelhttp.NewHandler(r, "ced.diag",
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		otelhttp.WithFilter(shouldTrace),
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return operation + " " + r.URL.Path
		}),
	)
}

// shouldTrace skips scrape and probe traffic.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate_limit_exceeded"})
		}),
	)
}

// checkScene is degraded while a scene is loading and healthy otherwise.
func (s *Server) checkScene(context.Context) health.CheckResult {
	st := s.source.Status()
	if st.State == "loading" {
		return health.CheckResult{
			Status:  health.StatusDegraded,
			Message: fmt.Sprintf("loading %.0f%%", st.Progress*100),
		}
	}
	return health.CheckResult{Status: health.StatusHealthy, Message: st.State}
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Status())
}

func (s *Server) handleLoads(w http.ResponseWriter, r *http.Request) {
	if s.loads == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "journal disabled"})
		return
	}
	limit := defaultLoadsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = min(n, maxLoadsLimit)
	}
	entries, err := s.loads.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Str(cedlog.FieldEvent, "diag.loads_failed").Msg("journal query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal query failed"})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run listens on cfg.Listen until ctx is done, then shuts down gracefully.
// An empty Listen disables the server and Run returns nil at once.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Listen == "" {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("diag listen %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info().
		Str(cedlog.FieldEvent, "diag.listening").
		Str("addr", ln.Addr().String()).
		Msg("diagnostics listener started")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("diag shutdown: %w", err)
	}
	<-errCh
	s.logger.Info().Str(cedlog.FieldEvent, "diag.stopped").Msg("diagnostics listener stopped")
	return nil
}
