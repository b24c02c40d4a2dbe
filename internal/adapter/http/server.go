// Package http serves the operational endpoints of the long-running ETL:
// liveness, readiness, the last run summary, and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runner is the view of the pipeline the server needs.
type Runner interface {
	CheckReadiness(ctx context.Context) error
	LastRun() (pipeline.RunSummary, bool)
}

// Server exposes health, readiness, status, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /status, and
// /metrics routes.
func NewServer(addr string, runner Runner, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(runner))
	mux.HandleFunc("GET /status", handleStatus(runner))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type runStatus struct {
	RunID          string  `json:"run_id"`
	Succeeded      bool    `json:"succeeded"`
	Error          string  `json:"error,omitempty"`
	TotalResults   int     `json:"total_results"`
	PagesRequested int     `json:"pages_requested"`
	FailedPages    []int   `json:"failed_pages"`
	Points         int     `json:"points"`
	Dropped        int     `json:"dropped"`
	Regions        int     `json:"regions"`
	BoundaryCRS    string  `json:"boundary_crs"`
	Matched        int     `json:"matched"`
	Unmatched      int     `json:"unmatched"`
	ExportPath     string  `json:"export_path,omitempty"`
	MapPath        string  `json:"map_path,omitempty"`
	DurationSec    float64 `json:"duration_seconds"`
}

func handleStatus(runner Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s, ok := runner.LastRun()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "no run yet"})
			return
		}
		failed := s.FailedPages
		if failed == nil {
			failed = []int{}
		}
		writeJSON(w, http.StatusOK, runStatus{
			RunID:          s.RunID,
			Succeeded:      s.Error == "",
			Error:          s.Error,
			TotalResults:   s.TotalResults,
			PagesRequested: s.PagesRequested,
			FailedPages:    failed,
			Points:         s.Points,
			Dropped:        s.Dropped,
			Regions:        s.Regions,
			BoundaryCRS:    s.BoundaryCRS.String(),
			Matched:        s.Matched,
			Unmatched:      s.Unmatched,
			ExportPath:     s.ExportPath,
			MapPath:        s.MapPath,
			DurationSec:    s.Duration.Seconds(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
