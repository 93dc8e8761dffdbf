// Package server exposes the analytics engine and the venue passthrough
// endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
	"github.com/alanyoungcy/polyportfolio/internal/server/handler"
	"github.com/alanyoungcy/polyportfolio/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// RateLimit is requests per RateLimitWindow per client IP; 0 disables.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Analytics *handler.AnalyticsHandler
	Venue     *handler.VenueHandler
	// Metrics serves the Prometheus exposition format; nil omits /metrics.
	Metrics http.Handler
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and wraps them in the middleware chain:
// CORS, then logging, then rate limiting, then auth.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /{$}", handlers.Health.Root)
	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics)
	}

	// Venue passthrough.
	mux.HandleFunc("GET /api/activity", handlers.Venue.Activity)
	mux.HandleFunc("GET /api/markets", handlers.Venue.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Venue.GetMarket)

	// Wallet reports.
	mux.HandleFunc("GET /api/positions", handlers.Analytics.Positions)
	mux.HandleFunc("GET /api/closed-positions", handlers.Analytics.ClosedPositions)
	mux.HandleFunc("GET /api/value", handlers.Analytics.Value)
	mux.HandleFunc("GET /api/pnl", handlers.Analytics.PnL)
	mux.HandleFunc("GET /api/total-pnl", handlers.Analytics.TotalPnL)
	mux.HandleFunc("GET /api/unrealized-profit", handlers.Analytics.UnrealizedProfit)
	mux.HandleFunc("GET /api/sector-exposure", handlers.Analytics.SectorExposure)

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow, logger)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Reports paginate the venue and may take a while.
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
