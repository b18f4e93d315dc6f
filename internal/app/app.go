// Package app provides the top-level application lifecycle for the prediction
// game service. It wires together all dependencies (stores, caches, blob
// storage, services, and notifications) and supervises the long-running
// goroutines: the round scheduler, the price feed, and the HTTP API.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/priceduel/priceduel/internal/config"
	"github.com/priceduel/priceduel/internal/game"
	"github.com/priceduel/priceduel/internal/oracle"
	"github.com/priceduel/priceduel/internal/server"
	"github.com/priceduel/priceduel/internal/server/handler"
	"github.com/priceduel/priceduel/internal/service"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the price
// feed, the scheduler, and the HTTP server, and blocks until the context is
// cancelled or a goroutine fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("symbol", a.cfg.Oracle.Symbol),
		slog.Duration("cadence", a.cfg.Game.Cadence.Duration),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Game engine.
	rating := game.NewRating(deps.StakeStore, deps.RatingStore, a.logger)
	settler := game.NewSettler(
		deps.RoundStore,
		deps.PriceCache,
		rating,
		deps.LockManager,
		notifierAdapter{deps.Notifier},
		a.cfg.Oracle.Symbol,
		a.logger,
	)
	scheduler := game.NewScheduler(
		deps.RoundStore,
		deps.PriceCache,
		settler,
		a.cfg.Oracle.Symbol,
		a.cfg.Game.Cadence.Duration,
		a.logger,
	)

	feed := oracle.NewFeed(
		a.cfg.Oracle.FeedURL,
		a.cfg.Oracle.Symbol,
		deps.PriceCache,
		a.cfg.Oracle.RefreshInterval.Duration,
		a.cfg.Oracle.FailureBackoff.Duration,
		a.logger,
	)

	// Fetch an initial price before the scheduler creates its first round,
	// so the first opening price is real rather than zero. Non-fatal: the
	// feed loop retries and the cache may already hold a value.
	if err := feed.Refresh(ctx); err != nil {
		a.logger.WarnContext(ctx, "initial price fetch failed",
			slog.String("error", err.Error()),
		)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return feed.Run(ctx)
	})
	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, rating)
	}

	return g.Wait()
}

// startServer builds the service and handler layers and registers the HTTP
// server goroutines on the group.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, rating *game.Rating) {
	roundSvc := service.NewRoundService(deps.RoundStore, deps.StakeStore, a.logger)
	profileSvc := service.NewProfileService(
		deps.UserStore,
		deps.ReferralStore,
		deps.RatingStore,
		deps.AvatarStore,
		rating,
		a.logger,
	)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		},
		server.Handlers{
			Health:   handler.NewHealthHandler(),
			Rounds:   handler.NewRoundHandler(roundSvc, a.logger),
			Rating:   handler.NewRatingHandler(profileSvc, a.logger),
			Profiles: handler.NewProfileHandler(profileSvc, a.logger),
		},
		a.logger,
	)

	g.Go(func() error {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
