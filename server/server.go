// Package server provides the HTTP surface of the rollwin demo service:
// instrumented demo endpoints, the per-minute statistics snapshot, health
// reporting and the Prometheus scrape endpoint, with graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/harwell/rollwin/config"
	"github.com/harwell/rollwin/httpmetrics"
	"github.com/harwell/rollwin/logging"
	"github.com/harwell/rollwin/rolling"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var serverStartTime = time.Now()

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router chi.Router
	record *rolling.RequestRecord
	config *config.Config
}

// NewServer creates a new server instance around the request record that
// instruments its demo endpoints.
func NewServer(cfg *config.Config, record *rolling.RequestRecord) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		record: record,
		config: cfg,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.Middleware(logging.DefaultLoggingService.Logger))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(newRateLimiter(s.config.RateLimitPerSec, s.config.RateLimitBurst).middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Operational surface
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/stats", s.statsSnapshot)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Demo endpoints, timed through the request record
	s.router.Group(func(r chi.Router) {
		r.Use(httpmetrics.Middleware(s.record))
		r.Get("/work", s.handleWork)
		r.Get("/boom", s.handleBoom)
	})
}

// handleWork simulates a request taking the given number of milliseconds
// (?ms=N, default 10, capped at 2000) and reports success.
func (s *Server) handleWork(w http.ResponseWriter, r *http.Request) {
	ms := 10
	if v := r.URL.Query().Get("ms"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			ms = parsed
		}
	}
	if ms > 2000 {
		ms = 2000
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	respondWithJSON(w, http.StatusOK, map[string]any{"slept_ms": ms})
}

// handleBoom always fails, so failure counting can be exercised end to end.
func (s *Server) handleBoom(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "intentional failure",
	})
}

// statsSnapshot returns the six last-minute statistics as JSON.
func (s *Server) statsSnapshot(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"record":                s.record.Name(),
		"total_requests_1m":     s.record.LastMinuteTotalCount(),
		"served_requests_1m":    s.record.LastMinuteServedCount(),
		"failed_requests_1m":    s.record.LastMinuteFailedCount(),
		"total_time_ms_1m":      s.record.LastMinuteTotalTime(),
		"max_time_ms_1m":        s.record.LastMinuteMaxTime(),
		"avg_time_ms_1m":        s.record.LastMinuteAvgTime(),
		"lifetime_timing_calls": s.record.Timer().Calls(),
	})
}

// healthCheck reports process-level health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"uptime":          formatUptimeHuman(time.Since(serverStartTime)),
		"memory_usage_mb": int(m.Alloc / 1024 / 1024),
		"tick_interval":   s.config.TickInterval.String(),
	})
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("Failed to encode JSON response", "error", err)
	}
}

// Start starts the server
func (s *Server) Start() error {
	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
