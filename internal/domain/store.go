package domain

import (
	"context"
	"time"
)

// RoundStore persists rounds and applies settlements.
type RoundStore interface {
	// Create inserts a round at the given scheduled time. Scheduled times are
	// unique; a second round at the same instant returns ErrDuplicateRound.
	Create(ctx context.Context, scheduledAt time.Time, openingPrice float64) (Round, error)

	GetByID(ctx context.Context, id int64) (Round, error)

	// NextToSettle returns the earliest unresolved round, regardless of whether
	// its scheduled time has passed. ErrNotFound when every round is resolved.
	NextToSettle(ctx context.Context) (Round, error)

	// NextUpcoming returns the earliest round scheduled strictly in the future.
	NextUpcoming(ctx context.Context) (Round, error)

	// Previous returns the most recent round whose scheduled time has passed.
	Previous(ctx context.Context) (Round, error)

	// Latest returns the round with the greatest scheduled time.
	Latest(ctx context.Context) (Round, error)

	// CountUpcoming counts unresolved rounds scheduled strictly in the future.
	CountUpcoming(ctx context.Context) (int64, error)

	// Stats returns per-currency, per-outcome stake totals for a round.
	Stats(ctx context.Context, roundID int64) (RoundStats, error)

	// Settle runs compute against the round's frozen stake snapshot and applies
	// the resulting Settlement atomically: stake payouts, balance credits, win
	// counters, referral credits, and the resolved flag all commit together or
	// not at all. A round that is already resolved returns ErrRoundResolved
	// without applying anything.
	Settle(ctx context.Context, roundID int64, compute ComputeFunc) (Settlement, error)
}

// StakePlacement is a request to stake on a round.
type StakePlacement struct {
	RoundID  int64
	UserID   int64
	Currency Currency
	Outcome  Outcome
	Amount   float64
}

// StakeStore persists stakes.
type StakeStore interface {
	// Place debits the user's balance and records the stake in one transaction.
	// It fails with ErrRoundClosed when the round is resolved or past its
	// scheduled time, ErrOutcomeMismatch when the user already holds the
	// opposite outcome in the same currency, and ErrInsufficientBalance when
	// the balance does not cover the amount.
	Place(ctx context.Context, p StakePlacement) (Stake, error)

	ListByUser(ctx context.Context, userID int64, limit int) ([]Stake, error)
	ListByUserAndRound(ctx context.Context, userID, roundID int64) ([]Stake, error)

	// WinningScore sums the user's normalized rating score over all settled
	// winning stakes: points payouts at face value, stable payouts scaled by
	// RatingUSDTMultiplier.
	WinningScore(ctx context.Context, userID int64) (float64, error)
}

// NewUser holds the fields needed to create a profile.
type NewUser struct {
	ID         int64
	Name       string
	Nickname   string
	ReferrerID *int64
}

// UserStore persists player profiles.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (User, error)
	// Create inserts the profile if it does not exist and returns the stored
	// row either way.
	Create(ctx context.Context, nu NewUser) (User, error)
	SetAvatar(ctx context.Context, id int64, url string) error
}

// ReferralStore reads referral credit history. Credits are written by the
// settlement transaction, not through this interface.
type ReferralStore interface {
	ListByReferrer(ctx context.Context, referrerID int64, limit int) ([]ReferralCredit, error)
}
