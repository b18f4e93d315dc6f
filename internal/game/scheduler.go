package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/priceduel/priceduel/internal/domain"
)

// Scheduler is the single long-running control loop that keeps the round queue
// populated and settles rounds as they come due. It is the sole writer of
// round and stake records on the settlement path; exactly one instance must
// run per deployment.
type Scheduler struct {
	rounds  domain.RoundStore
	prices  domain.PriceCache
	settler *Settler
	symbol  string
	cadence time.Duration
	logger  *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewScheduler creates a Scheduler with the given round cadence.
func NewScheduler(
	rounds domain.RoundStore,
	prices domain.PriceCache,
	settler *Settler,
	symbol string,
	cadence time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		rounds:  rounds,
		prices:  prices,
		settler: settler,
		symbol:  symbol,
		cadence: cadence,
		logger:  logger.With(slog.String("component", "scheduler")),
		now:     time.Now,
	}
}

// Run drives the loop until ctx is cancelled. Any error from a single
// iteration is logged and the loop continues; the process never terminates
// because one iteration failed.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scheduler starting",
		slog.Duration("cadence", s.cadence),
		slog.String("symbol", s.symbol),
	)

	for {
		if err := s.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.ErrorContext(ctx, "scheduler iteration failed",
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Step runs one scheduler iteration: ensure at least one round exists, keep
// the upcoming queue at depth two, sleep until the earliest unresolved round
// is due, then settle it. Overdue rounds (for example after a restart) are
// still settled; a replacement keeps the cadence self-healing.
func (s *Scheduler) Step(ctx context.Context) error {
	round, err := s.rounds.NextToSettle(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Empty queue: seed it from the last settled round and restart
			// immediately. On a fresh database there is nothing to fall back
			// to and the round opens at zero until the feed fills the cache.
			var fallback float64
			if last, lerr := s.rounds.Latest(ctx); lerr == nil {
				fallback = lastKnownPrice(last)
			} else if !errors.Is(lerr, domain.ErrNotFound) {
				return fmt.Errorf("game: latest round: %w", lerr)
			}
			_, err := s.createNext(ctx, s.now(), fallback)
			return err
		}
		return fmt.Errorf("game: next round to settle: %w", err)
	}

	remaining := round.ScheduledAt.Sub(s.now())
	if remaining < 0 {
		// The loop fell behind. Queue a replacement one cadence after the
		// overdue round's slot, seeded from its last known price, and still
		// settle the overdue round below.
		last, lerr := s.rounds.Latest(ctx)
		if lerr != nil {
			s.logger.ErrorContext(ctx, "latest round lookup failed",
				slog.String("error", lerr.Error()),
			)
		} else if _, cerr := s.createNext(ctx, last.ScheduledAt, lastKnownPrice(last)); cerr != nil {
			return cerr
		}
	} else {
		upcoming, cerr := s.rounds.CountUpcoming(ctx)
		if cerr != nil {
			return fmt.Errorf("game: count upcoming rounds: %w", cerr)
		}
		// Keep one stakeable round visible beyond the one being awaited.
		if upcoming < 2 {
			if _, err := s.createNext(ctx, s.now(), lastKnownPrice(round)); err != nil {
				return err
			}
		}
	}

	if remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return s.settler.Settle(ctx, round)
}

// createNext inserts a round one cadence after the given time (normalized to
// the whole minute), opened at the latest cached price, falling back to the
// supplied price when the cache has never been filled. Duplicate schedules are
// tolerated: a concurrent or repeated create logs and moves on.
func (s *Scheduler) createNext(ctx context.Context, after time.Time, fallback float64) (domain.Round, error) {
	scheduledAt := after.UTC().Truncate(time.Minute).Add(s.cadence)

	opening, err := s.prices.GetPrice(ctx, s.symbol)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Round{}, fmt.Errorf("game: read opening price: %w", err)
		}
		opening = fallback
	}

	round, err := s.rounds.Create(ctx, scheduledAt, domain.Truncate(opening))
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateRound) {
			s.logger.WarnContext(ctx, "round already scheduled",
				slog.Time("scheduled_at", scheduledAt),
			)
			return domain.Round{}, nil
		}
		return domain.Round{}, fmt.Errorf("game: create round: %w", err)
	}

	s.logger.InfoContext(ctx, "round created",
		slog.Int64("round_id", round.ID),
		slog.Time("scheduled_at", round.ScheduledAt),
		slog.Float64("opening_price", round.OpeningPrice),
	)
	return round, nil
}

// lastKnownPrice returns the most recent price recorded on a round: its
// resolution price when settled, its opening price otherwise.
func lastKnownPrice(r domain.Round) float64 {
	if r.ResolutionPrice != nil {
		return *r.ResolutionPrice
	}
	return r.OpeningPrice
}
