// Package api serves the read-only status API and Prometheus metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/briancarter456546/paper-trading-system/internal/model"
	"github.com/briancarter456546/paper-trading-system/internal/store"
)

// Reader is the part of the store the API reads.
type Reader interface {
	Positions(ctx context.Context, status model.PositionStatus) ([]model.Position, error)
	MetricsHistory(ctx context.Context, limit int) ([]model.DailyMetrics, error)
	Signals(ctx context.Context, date time.Time) ([]store.SignalRecord, error)
	Runs(ctx context.Context, limit int) ([]model.RunRecord, error)
}

// Config holds server configuration.
type Config struct {
	Addr     string
	Store    Reader
	Registry *prometheus.Registry // nil disables /metrics
	Log      zerolog.Logger
}

// Server is the status HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	store  Reader
	log    zerolog.Logger
}

// New creates a Server and its routes.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		store:  cfg.Store,
		log:    cfg.Log.With().Str("component", "api").Logger(),
	}
	s.setupMiddleware()
	s.setupRoutes(cfg.Registry)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes(reg *prometheus.Registry) {
	s.router.Get("/healthz", s.handleHealth)
	if reg != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/positions", s.handlePositions)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/signals", s.handleSignals)
		r.Get("/runs", s.handleRuns)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
