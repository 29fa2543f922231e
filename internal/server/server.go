// Package server hosts the query API: catalog, scores, telemetry, auth,
// and admin triggers, behind a chi router.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
	"github.com/greenarc/esgpipe/internal/handlers"
)

// Handlers bundles the route handlers the server mounts.
type Handlers struct {
	Health     *handlers.HealthHandler
	Companies  *handlers.CompanyHandler
	Indicators *handlers.IndicatorHandler
	Scores     *handlers.ScoreHandler
	Telemetry  *handlers.TelemetryHandler
	Auth       *handlers.AuthHandler
	Admin      *handlers.AdminHandler
	Middleware *handlers.Middleware
}

// Server manages the HTTP listener and routes.
type Server struct {
	cfg      common.ServerConfig
	logger   arbor.ILogger
	router   *chi.Mux
	server   *http.Server
	handlers Handlers
}

// New builds the router and the underlying http.Server.
func New(cfg common.ServerConfig, h Handlers, logger arbor.ILogger) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		handlers: h,
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.Health.HealthHandler)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handlers.Companies.ListHandler)
			r.Get("/{id}", s.handlers.Companies.GetHandler)
			r.Get("/{id}/announcements", s.handlers.Companies.AnnouncementsHandler)
			r.Get("/{id}/scores", s.handlers.Scores.GetHandler)
			r.Get("/{id}/report", s.handlers.Scores.ReportHandler)
		})

		r.Get("/indicators/definitions", s.handlers.Indicators.DefinitionsHandler)

		r.Route("/telemetry", func(r chi.Router) {
			r.Get("/latest", s.handlers.Telemetry.LatestHandler)
			r.Get("/stream", s.handlers.Telemetry.StreamHandler)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handlers.Auth.RegisterHandler)
			r.Post("/login", s.handlers.Auth.LoginHandler)
		})

		// Mutating endpoints require a principal and count against its
		// rate window.
		r.Group(func(r chi.Router) {
			r.Use(s.handlers.Middleware.RequireAuth)
			r.Use(s.handlers.Middleware.RateLimit)

			r.Post("/cache/invalidate/{scope}", s.handlers.Admin.InvalidateScopeHandler)
			r.Post("/reports/trigger-processing", s.handlers.Admin.TriggerProcessingHandler)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			handlers.WriteError(w, http.StatusNotFound, "not found")
		})
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.server.Addr).Msg("API server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down API server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown failed: %w", err)
	}
	return nil
}
