package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobdata-fetcher/internal/id/uuid"
	"github.com/JakeFAU/jobdata-fetcher/internal/metrics"
	"github.com/JakeFAU/jobdata-fetcher/internal/report"
)

// SummaryFunc returns a snapshot of the running tally.
type SummaryFunc func() report.Summary

// Server wires the ops routes to the metrics registry and run tally.
type Server struct {
	router    chi.Router
	runID     string
	startedAt time.Time
	summary   SummaryFunc
	logger    *zap.Logger
}

type runResponse struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at,omitzero"`
	Attempted       int64     `json:"attempted"`
	Persisted       int64     `json:"persisted"`
	FetchFailures   int64     `json:"fetch_failures"`
	PersistFailures int64     `json:"persist_failures"`
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runID string, gatherer prometheus.Gatherer, summary SummaryFunc, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runID:   runID,
		summary: summary,
		logger:  logger,
	}
	if started, err := uuid.StartedAt(runID); err == nil {
		s.startedAt = started.UTC()
	} else {
		logger.Warn("run id carries no start time", zap.String("run_id", runID), zap.Error(err))
	}
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	r.Get("/v1/run", s.run)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) run(w http.ResponseWriter, _ *http.Request) {
	var sum report.Summary
	if s.summary != nil {
		sum = s.summary()
	}
	s.writeJSON(w, http.StatusOK, runResponse{
		RunID:           s.runID,
		StartedAt:       s.startedAt,
		Attempted:       sum.Attempted,
		Persisted:       sum.Persisted,
		FetchFailures:   sum.FetchFailures,
		PersistFailures: sum.PersistFailures,
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("dur", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write JSON failed", zap.Error(err))
	}
}
