// Package service implements the application use cases exposed over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/priceduel/priceduel/internal/domain"
)

// winningsWindow bounds how long after a round's scheduled time the previous
// round's winnings remain queryable. Clients poll right after the flip, so a
// short window is enough.
const winningsWindow = 15 * time.Second

// NextRoundView is the upcoming round together with its live stake totals.
type NextRoundView struct {
	Round domain.Round      `json:"round"`
	Stats domain.RoundStats `json:"stats"`
}

// RoundResultView is a settled round with its final stake totals.
type RoundResultView struct {
	Round  domain.Round      `json:"round"`
	Winner domain.Outcome    `json:"winner,omitempty"`
	Stats  domain.RoundStats `json:"stats"`
}

// RoundWinnings sums a user's recorded payouts for one round per currency.
type RoundWinnings struct {
	RoundID int64                       `json:"round_id"`
	Payouts map[domain.Currency]float64 `json:"payouts"`
}

// RoundService handles round queries and stake placement.
type RoundService struct {
	rounds domain.RoundStore
	stakes domain.StakeStore
	now    func() time.Time
	logger *slog.Logger
}

// NewRoundService creates a RoundService.
func NewRoundService(rounds domain.RoundStore, stakes domain.StakeStore, logger *slog.Logger) *RoundService {
	return &RoundService{
		rounds: rounds,
		stakes: stakes,
		now:    time.Now,
		logger: logger,
	}
}

// NextRound returns the earliest upcoming round with its current stake totals.
func (s *RoundService) NextRound(ctx context.Context) (NextRoundView, error) {
	round, err := s.rounds.NextUpcoming(ctx)
	if err != nil {
		return NextRoundView{}, fmt.Errorf("round_service: next upcoming: %w", err)
	}
	stats, err := s.rounds.Stats(ctx, round.ID)
	if err != nil {
		return NextRoundView{}, fmt.Errorf("round_service: stats %d: %w", round.ID, err)
	}
	return NextRoundView{Round: round, Stats: stats}, nil
}

// RoundResult returns a round by ID with its stake totals and, once resolved,
// the winning outcome.
func (s *RoundService) RoundResult(ctx context.Context, roundID int64) (RoundResultView, error) {
	round, err := s.rounds.GetByID(ctx, roundID)
	if err != nil {
		return RoundResultView{}, fmt.Errorf("round_service: get round %d: %w", roundID, err)
	}
	stats, err := s.rounds.Stats(ctx, round.ID)
	if err != nil {
		return RoundResultView{}, fmt.Errorf("round_service: stats %d: %w", round.ID, err)
	}

	view := RoundResultView{Round: round, Stats: stats}
	if round.Resolved && round.ResolutionPrice != nil {
		view.Winner = round.Winner(*round.ResolutionPrice)
	}
	return view, nil
}

// PlaceStake validates the placement and records it. The store enforces the
// balance, round state, and outcome consistency rules.
func (s *RoundService) PlaceStake(ctx context.Context, p domain.StakePlacement) (domain.Stake, error) {
	if !p.Currency.Valid() {
		return domain.Stake{}, fmt.Errorf("round_service: currency %q: %w", p.Currency, domain.ErrInvalidAmount)
	}
	if !p.Outcome.Valid() {
		return domain.Stake{}, fmt.Errorf("round_service: outcome %q: %w", p.Outcome, domain.ErrInvalidAmount)
	}
	if p.Amount <= 0 {
		return domain.Stake{}, fmt.Errorf("round_service: amount %v: %w", p.Amount, domain.ErrInvalidAmount)
	}

	stake, err := s.stakes.Place(ctx, p)
	if err != nil {
		return domain.Stake{}, fmt.Errorf("round_service: place stake: %w", err)
	}

	s.logger.InfoContext(ctx, "stake placed",
		slog.Int64("round_id", stake.RoundID),
		slog.Int64("user_id", stake.UserID),
		slog.String("currency", string(stake.Currency)),
		slog.String("outcome", string(stake.Outcome)),
		slog.Float64("amount", stake.Amount),
	)
	return stake, nil
}

// PreviousWinnings returns the user's per-currency payouts for the most
// recently finished round. The result is only available for a short window
// after the round's scheduled time; outside it, or when the round is not yet
// settled, it returns ErrNotFound.
func (s *RoundService) PreviousWinnings(ctx context.Context, userID int64) (RoundWinnings, error) {
	round, err := s.rounds.Previous(ctx)
	if err != nil {
		return RoundWinnings{}, fmt.Errorf("round_service: previous round: %w", err)
	}
	if !round.Resolved || s.now().Sub(round.ScheduledAt) > winningsWindow {
		return RoundWinnings{}, fmt.Errorf("round_service: winnings window closed for round %d: %w", round.ID, domain.ErrNotFound)
	}

	stakes, err := s.stakes.ListByUserAndRound(ctx, userID, round.ID)
	if err != nil {
		return RoundWinnings{}, fmt.Errorf("round_service: list stakes: %w", err)
	}

	w := RoundWinnings{RoundID: round.ID, Payouts: make(map[domain.Currency]float64, 2)}
	for _, st := range stakes {
		if st.Payout == nil {
			continue
		}
		w.Payouts[st.Currency] += *st.Payout
	}
	if len(w.Payouts) == 0 {
		return RoundWinnings{}, fmt.Errorf("round_service: no stakes in round %d: %w", round.ID, domain.ErrNotFound)
	}
	return w, nil
}

// UserStakes lists the user's most recent stakes across rounds.
func (s *RoundService) UserStakes(ctx context.Context, userID int64, limit int) ([]domain.Stake, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	stakes, err := s.stakes.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("round_service: list user stakes: %w", err)
	}
	return stakes, nil
}

// IsClientError reports whether err maps to a caller mistake rather than an
// internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrRoundClosed) ||
		errors.Is(err, domain.ErrOutcomeMismatch) ||
		errors.Is(err, domain.ErrInsufficientBalance)
}
