// Package server wires the HTTP API: routing, middleware, and lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/priceduel/priceduel/internal/server/handler"
	"github.com/priceduel/priceduel/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Rounds   *handler.RoundHandler
	Rating   *handler.RatingHandler
	Profiles *handler.ProfileHandler
}

// Server is the HTTP API server for the prediction game.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux
// and the logging and CORS middleware applied.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Round endpoints. Literal segments take precedence over {id}.
	mux.HandleFunc("GET /api/rounds/next", handlers.Rounds.NextRound)
	mux.HandleFunc("GET /api/rounds/previous/winnings", handlers.Rounds.PreviousWinnings)
	mux.HandleFunc("GET /api/rounds/{id}/result", handlers.Rounds.RoundResult)
	mux.HandleFunc("POST /api/rounds/{id}/stakes", handlers.Rounds.PlaceStake)
	mux.HandleFunc("GET /api/stakes", handlers.Rounds.UserStakes)

	// Leaderboard.
	mux.HandleFunc("GET /api/rating", handlers.Rating.Leaderboard)

	// Profiles.
	mux.HandleFunc("POST /api/profiles", handlers.Profiles.CreateProfile)
	mux.HandleFunc("GET /api/profiles/{id}", handlers.Profiles.GetProfile)
	mux.HandleFunc("PUT /api/profiles/{id}/avatar", handlers.Profiles.UploadAvatar)
	mux.HandleFunc("GET /api/profiles/{id}/referrals", handlers.Profiles.Referrals)

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
