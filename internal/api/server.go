// Package api exposes the analysis engine over HTTP.
package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/apiarylab/hivemind/effects"
	"github.com/apiarylab/hivemind/engine"
	"github.com/apiarylab/hivemind/store"
)

// Server holds the handler dependencies.
type Server struct {
	generator *engine.Generator
	effects   *effects.Processor
	insights  store.InsightStore
	tasks     store.TaskStore
	cache     store.DashboardCache
	db        *sql.DB
	logger    *slog.Logger
}

// NewServer creates a Server. db may be nil when running without Postgres;
// the health endpoint then skips the database check.
func NewServer(generator *engine.Generator, processor *effects.Processor, insights store.InsightStore, tasks store.TaskStore, cache store.DashboardCache, db *sql.DB, logger *slog.Logger) *Server {
	return &Server{
		generator: generator,
		effects:   processor,
		insights:  insights,
		tasks:     tasks,
		cache:     cache,
		db:        db,
		logger:    logger,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/api/v1/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(RequireTenant)

		r.Route("/api/v1/brain", func(r chi.Router) {
			r.Get("/dashboard", s.handleDashboard)
			r.Post("/refresh", s.handleRefresh)
			r.Get("/hives/{id}", s.handleHiveAnalysis)
			r.Get("/maintenance", s.handleMaintenance)
			r.Post("/insights/{id}/dismiss", s.handleDismissInsight)
			r.Post("/insights/{id}/snooze", s.handleSnoozeInsight)
		})

		r.Post("/api/v1/tasks/{id}/complete", s.handleCompleteTask)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			s.logger.Error("health check failed", "error", err)
			respondJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
			return
		}
	}
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
