// Package domain defines the core types of the price prediction game and the
// store/cache interfaces that the persistence and caching layers implement.
package domain

import "time"

// Currency is a closed enumeration of the two stake currencies.
type Currency string

const (
	// CurrencyPoints is the in-game points currency.
	CurrencyPoints Currency = "POINTS"
	// CurrencyUSDT is the stable-value currency.
	CurrencyUSDT Currency = "USDT"
)

// Valid reports whether c is one of the two known currencies.
func (c Currency) Valid() bool {
	return c == CurrencyPoints || c == CurrencyUSDT
}

// Outcome is a closed enumeration of the two round outcomes.
type Outcome string

const (
	// OutcomeHigher is a stake on the resolution price exceeding the opening price.
	OutcomeHigher Outcome = "HIGHER"
	// OutcomeLower is a stake on the resolution price not exceeding the opening
	// price. Ties resolve as lower.
	OutcomeLower Outcome = "LOWER"
)

// Valid reports whether o is one of the two known outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomeHigher || o == OutcomeLower
}

// Round is a single timed prediction game instance. Rounds are created by the
// scheduler, settled exactly once, and never deleted.
type Round struct {
	ID              int64     `json:"id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	OpeningPrice    float64   `json:"opening_price"`
	ResolutionPrice *float64  `json:"resolution_price,omitempty"`
	Resolved        bool      `json:"resolved"`
	CreatedAt       time.Time `json:"created_at"`
}

// Winner returns the outcome that won the round given its resolution price.
// Both prices are truncated before the strict comparison, so a tie favors
// lower.
func (r Round) Winner(resolutionPrice float64) Outcome {
	if Truncate(resolutionPrice) > Truncate(r.OpeningPrice) {
		return OutcomeHigher
	}
	return OutcomeLower
}

// Stake is a user's wager on one outcome of one round in one currency. Amount
// only grows when the user adds to an existing position; Payout is written
// exactly once at settlement: positive for winners, negative for losers. The
// negative value is bookkeeping only and never feeds a balance mutation.
type Stake struct {
	ID        int64     `json:"id"`
	RoundID   int64     `json:"round_id"`
	UserID    int64     `json:"user_id"`
	Currency  Currency  `json:"currency"`
	Outcome   Outcome   `json:"outcome"`
	Amount    float64   `json:"amount"`
	Payout    *float64  `json:"payout,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OutcomeTotals aggregates stakes on one side of a round in one currency.
type OutcomeTotals struct {
	Stakers int64   `json:"stakers"`
	Total   float64 `json:"total"`
}

// RoundStats holds per-currency, per-outcome stake aggregates for a round.
type RoundStats map[Currency]map[Outcome]OutcomeTotals

// NewRoundStats returns stats with every currency/outcome cell zeroed, so
// clients always see the full grid.
func NewRoundStats() RoundStats {
	stats := make(RoundStats, 2)
	for _, c := range []Currency{CurrencyPoints, CurrencyUSDT} {
		stats[c] = map[Outcome]OutcomeTotals{
			OutcomeHigher: {},
			OutcomeLower:  {},
		}
	}
	return stats
}
