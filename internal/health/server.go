// Package health exposes the operational HTTP surface: liveness and
// Prometheus metrics.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker reports backend health. Satisfied by the postgres DB; nil checks
// are skipped for the file backend.
type Checker func(ctx context.Context) error

// Server serves /health and /metrics.
type Server struct {
	srv   *http.Server
	check Checker
	log   *slog.Logger
}

// NewServer creates the operational server on the given port.
func NewServer(port int, check Checker, log *slog.Logger) *Server {
	s := &Server{check: check, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if s.check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.check(ctx); err != nil {
			s.log.Warn("health check failed", "error", err)
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// Start serves until the listener closes.
func (s *Server) Start() error {
	s.log.Info("operational server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
