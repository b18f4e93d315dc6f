// Package game implements the core of the prediction game: the pari-mutuel
// settlement computation, the settler that applies it, the rating recompute,
// and the round scheduler loop.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/priceduel/priceduel/internal/domain"
)

const (
	// USDTRake is the share of the stable-currency pool that remains
	// distributable after the 3% house rake. The points pool carries no rake.
	USDTRake = 0.97

	// ReferralShare is the fraction of a winning points stake credited to the
	// winner's referrer. Stable-currency wins generate no referral credit.
	ReferralShare = 0.05
)

// Compute produces the settlement for a round given its resolution price and a
// frozen snapshot of its stakes. It is pure: all writes are described in the
// returned Settlement and applied by the round store in one transaction.
//
// Ratios are computed per currency: distributablePool / winningPool, falling
// back to 1 when nobody staked the winning side. Winners are credited
// amount*ratio untruncated; recorded payouts are truncated. Losers get a
// negative truncated payout for bookkeeping and no balance mutation.
func Compute(round domain.Round, resolutionPrice float64, stakes []domain.Stake, referrers map[int64]int64) domain.Settlement {
	winner := round.Winner(resolutionPrice)

	sett := domain.Settlement{
		RoundID:         round.ID,
		ResolutionPrice: domain.Truncate(resolutionPrice),
		Winner:          winner,
		Wins:            make(map[int64]int64),
	}

	ratios := map[domain.Currency]float64{
		domain.CurrencyPoints: ratio(stakes, domain.CurrencyPoints, winner, 1),
		domain.CurrencyUSDT:   ratio(stakes, domain.CurrencyUSDT, winner, USDTRake),
	}

	ratingSeen := make(map[int64]bool)

	for _, st := range stakes {
		r := ratios[st.Currency]
		gross := st.Amount * r

		if st.Outcome != winner {
			sett.Payouts = append(sett.Payouts, domain.StakePayout{
				StakeID: st.ID,
				Payout:  -domain.Truncate(gross),
			})
			continue
		}

		sett.Payouts = append(sett.Payouts, domain.StakePayout{
			StakeID: st.ID,
			Payout:  domain.Truncate(gross),
		})
		sett.Credits = append(sett.Credits, domain.BalanceCredit{
			UserID:   st.UserID,
			Currency: st.Currency,
			Amount:   gross,
		})
		sett.Wins[st.UserID]++

		if !ratingSeen[st.UserID] {
			ratingSeen[st.UserID] = true
			sett.RatingUsers = append(sett.RatingUsers, st.UserID)
		}

		if st.Currency == domain.CurrencyPoints {
			if refID, ok := referrers[st.UserID]; ok {
				refAmount := domain.Truncate(st.Amount * ReferralShare)
				sett.Credits = append(sett.Credits, domain.BalanceCredit{
					UserID:   refID,
					Currency: domain.CurrencyPoints,
					Amount:   refAmount,
				})
				sett.Referrals = append(sett.Referrals, domain.ReferralCredit{
					ID:         uuid.NewString(),
					UserID:     st.UserID,
					ReferrerID: refID,
					StakeID:    st.ID,
					Amount:     refAmount,
					Currency:   domain.CurrencyPoints,
				})
			}
		}
	}

	return sett
}

// ratio computes distributablePool / winningPool for one currency, with a
// fallback of 1 when the winning pool is empty.
func ratio(stakes []domain.Stake, c domain.Currency, winner domain.Outcome, rake float64) float64 {
	var total, winning float64
	for _, st := range stakes {
		if st.Currency != c {
			continue
		}
		total += st.Amount
		if st.Outcome == winner {
			winning += st.Amount
		}
	}
	if winning <= 0 {
		return 1
	}
	return total * rake / winning
}

// Settler settles due rounds: it captures the resolution price, applies the
// settlement through the round store, refreshes affected rating scores, and
// announces the result.
type Settler struct {
	rounds   domain.RoundStore
	prices   domain.PriceCache
	rating   *Rating
	locks    domain.LockManager
	notifier Notifier
	symbol   string
	logger   *slog.Logger
}

// Notifier receives settlement announcements. May be nil.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string)
}

// NewSettler creates a Settler. locks and notifier are optional; a nil lock
// manager disables the cross-instance settlement lock.
func NewSettler(
	rounds domain.RoundStore,
	prices domain.PriceCache,
	rating *Rating,
	locks domain.LockManager,
	notifier Notifier,
	symbol string,
	logger *slog.Logger,
) *Settler {
	return &Settler{
		rounds:   rounds,
		prices:   prices,
		rating:   rating,
		locks:    locks,
		notifier: notifier,
		symbol:   symbol,
		logger:   logger.With(slog.String("component", "settler")),
	}
}

// Settle settles a single round. It is idempotent: a round that was already
// resolved (or is being settled by another holder of the lock) is a no-op.
func (s *Settler) Settle(ctx context.Context, round domain.Round) error {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, fmt.Sprintf("settle:%d", round.ID), 30*time.Second)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				s.logger.WarnContext(ctx, "settlement lock held, skipping",
					slog.Int64("round_id", round.ID),
				)
				return nil
			}
			return fmt.Errorf("game: acquire settle lock: %w", err)
		}
		defer unlock()
	}

	price, err := s.prices.GetPrice(ctx, s.symbol)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("game: read resolution price: %w", err)
		}
		// No price has ever been cached: fall back to the round's own opening
		// price so the round still settles (as a tie, lower wins).
		price = round.OpeningPrice
		s.logger.WarnContext(ctx, "price unavailable, settling against opening price",
			slog.Int64("round_id", round.ID),
			slog.Float64("opening_price", round.OpeningPrice),
		)
	}
	price = domain.Truncate(price)

	sett, err := s.rounds.Settle(ctx, round.ID, func(r domain.Round, stakes []domain.Stake, referrers map[int64]int64) (domain.Settlement, error) {
		return Compute(r, price, stakes, referrers), nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoundResolved) {
			s.logger.InfoContext(ctx, "round already resolved",
				slog.Int64("round_id", round.ID),
			)
			return nil
		}
		return fmt.Errorf("game: settle round %d: %w", round.ID, err)
	}

	s.logger.InfoContext(ctx, "round settled",
		slog.Int64("round_id", round.ID),
		slog.Float64("opening_price", round.OpeningPrice),
		slog.Float64("resolution_price", sett.ResolutionPrice),
		slog.String("winner", string(sett.Winner)),
		slog.Int("stakes", len(sett.Payouts)),
	)

	for _, userID := range sett.RatingUsers {
		if err := s.rating.Recompute(ctx, userID); err != nil {
			s.logger.ErrorContext(ctx, "rating recompute failed",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, "round_settled",
			"Round settled",
			fmt.Sprintf("%s: %.2f -> %.2f, %s wins (%d stakes)",
				s.symbol, round.OpeningPrice, sett.ResolutionPrice, sett.Winner, len(sett.Payouts)),
		)
	}

	return nil
}
