// Package server exposes the bot's HTTP side: health checks for the hosting
// platform, a small stats endpoint and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stats is the read-only persistence slice the endpoints report from.
type Stats interface {
	CountUsers(ctx context.Context) (total, active int64, err error)
	CountFiles(ctx context.Context) (int64, error)
}

// Server wraps the HTTP listener.
type Server struct {
	addr  string
	store Stats
	log   *slog.Logger
}

// New constructs a Server.
func New(addr string, store Stats, log *slog.Logger) *Server {
	return &Server{addr: addr, store: store, log: log}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: s.addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("http server listening", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "filestore-bot"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, active, err := s.store.CountUsers(r.Context())
	if err != nil {
		s.log.Error("count users", "err", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}
	files, err := s.store.CountFiles(r.Context())
	if err != nil {
		s.log.Error("count files", "err", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{
		"users":        total,
		"active_users": active,
		"files":        files,
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
