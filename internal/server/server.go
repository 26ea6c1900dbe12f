// Package server provides the HTTP surface for Sentinel: the TradingView
// webhook endpoint that feeds internal/engine, and read-only status
// endpoints for the hedge, margin and audit subsystems.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/audit"
	"github.com/aristath/sentinel/internal/confirmation"
	"github.com/aristath/sentinel/internal/engine"
	"github.com/aristath/sentinel/internal/hedge"
	"github.com/aristath/sentinel/internal/margin"
	"github.com/aristath/sentinel/internal/queue"
)

// Config holds everything the HTTP server needs from the rest of the
// wired system.
type Config struct {
	Log          zerolog.Logger
	Port         int
	Engine       *engine.Engine
	Queue        *queue.Manager // optional; nil runs the engine inline with no backpressure
	Audit        audit.Store
	HedgeLedger  hedge.Ledger
	HedgeSession string
	Margin       *margin.Monitor
	Confirmation *confirmation.Bus
	StartupTime  time.Time
}

// Server wraps the chi router and the underlying http.Server.
type Server struct {
	router *chi.Mux
	http   *http.Server
	cfg    Config
}

// New builds a Server with every route mounted.
func New(cfg Config) *Server {
	if cfg.StartupTime.IsZero() {
		cfg.StartupTime = time.Now()
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	s.routes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.cfg.Log.Info().Int("port", s.cfg.Port).Msg("starting HTTP server")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
