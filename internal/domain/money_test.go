package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, 3.88, Truncate(3.8823))
	assert.Equal(t, 3.88, Truncate(3.8899))
	assert.Equal(t, 100.0, Truncate(100.0))
	assert.Equal(t, 0.0, Truncate(0.009))
	assert.Equal(t, -3.88, Truncate(-3.8899))
}

func TestTruncate_NeverRoundsUp(t *testing.T) {
	assert.Equal(t, 1.99, Truncate(1.99999))
	assert.Equal(t, 0.99, Truncate(0.999))
}

func TestTruncateTo(t *testing.T) {
	assert.Equal(t, 3.8, TruncateTo(3.8823, 1))
	assert.Equal(t, 3.0, TruncateTo(3.8823, 0))
	assert.Equal(t, 3.882, TruncateTo(3.8823, 3))
}

func TestRoundWinner_HigherOnlyOnStrictIncrease(t *testing.T) {
	r := Round{OpeningPrice: 100.00}

	assert.Equal(t, OutcomeHigher, r.Winner(100.01))
	assert.Equal(t, OutcomeLower, r.Winner(100.00))
	assert.Equal(t, OutcomeLower, r.Winner(99.99))
}

func TestRoundWinner_TruncatesBeforeComparing(t *testing.T) {
	r := Round{OpeningPrice: 100.00}

	// 100.009 truncates to 100.00: a tie, so lower wins.
	assert.Equal(t, OutcomeLower, r.Winner(100.009))
	// The opening price truncates too.
	assert.Equal(t, OutcomeLower, Round{OpeningPrice: 100.019}.Winner(100.01))
}

func TestCurrencyAndOutcomeValidation(t *testing.T) {
	assert.True(t, CurrencyPoints.Valid())
	assert.True(t, CurrencyUSDT.Valid())
	assert.False(t, Currency("EUR").Valid())

	assert.True(t, OutcomeHigher.Valid())
	assert.True(t, OutcomeLower.Valid())
	assert.False(t, Outcome("SIDEWAYS").Valid())
}

func TestNewRoundStats_FullGrid(t *testing.T) {
	stats := NewRoundStats()

	for _, c := range []Currency{CurrencyPoints, CurrencyUSDT} {
		for _, o := range []Outcome{OutcomeHigher, OutcomeLower} {
			totals, ok := stats[c][o]
			assert.True(t, ok, "missing cell %s/%s", c, o)
			assert.Zero(t, totals.Stakers)
			assert.Zero(t, totals.Total)
		}
	}
}
