package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bookofrecords/sentinel/internal/domain"
	"github.com/bookofrecords/sentinel/internal/engine"
	"github.com/bookofrecords/sentinel/internal/rules"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, ruleEngine *rules.Engine, asyncAssess bool) *Server {
	handler := NewHandler(repo, eng, ruleEngine, bus, asyncAssess)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Route("/api/v1", func(r chi.Router) {
		// Scoring endpoints are the ones worth defending against abuse.
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(cache, cfg.RateLimit, time.Minute))

			r.Post("/assess", handler.Assess)
			r.Post("/submissions", handler.CreateSubmission)
		})

		// Submission retrieval
		r.Get("/submissions/{id}", handler.GetSubmission)
		r.Get("/submissions/{id}/assessment", handler.GetSubmissionAssessment)
		r.Patch("/submissions/{id}/status", handler.UpdateSubmissionStatus)

		// Assessment retrieval
		r.Get("/assessments/{id}", handler.GetAssessment)

		// Check management
		r.Get("/checks", handler.ListChecks)
		r.Get("/checks/{id}", handler.GetCheck)
		r.Post("/checks", handler.CreateCheck)
		r.Delete("/checks/{id}", handler.DeleteCheck)
		r.Post("/checks/reload", handler.ReloadChecks)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
