package domain

import "math"

// PriceScale is the number of decimal places kept for prices and payouts.
const PriceScale = 2

// RatingUSDTMultiplier converts stable-currency payouts into rating points so
// that one leaderboard can rank mixed-currency skill.
const RatingUSDTMultiplier = 1000

// Truncate floors v to PriceScale decimal places. Truncation, not rounding:
// outcome determination and payout bookkeeping must never round a value up,
// otherwise both sides of a price comparison could be nudged in the caller's
// favor.
func Truncate(v float64) float64 {
	return TruncateTo(v, PriceScale)
}

// TruncateTo floors v to the given number of decimal places. Negative values
// truncate toward zero so that -Truncate(x) == TruncateTo(-x).
func TruncateTo(v float64, scale int) float64 {
	pow := math.Pow(10, float64(scale))
	return math.Trunc(v*pow) / pow
}
