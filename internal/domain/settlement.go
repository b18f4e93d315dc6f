package domain

// StakePayout is the payout value recorded on a single stake at settlement.
// Positive for winners, negative for losers (bookkeeping only).
type StakePayout struct {
	StakeID int64
	Payout  float64
}

// BalanceCredit is a balance increment applied to a user inside the settlement
// transaction. Winner credits are intentionally untruncated; only the recorded
// payout is truncated.
type BalanceCredit struct {
	UserID   int64
	Currency Currency
	Amount   float64
}

// Settlement is the full set of writes produced by settling one round. The
// Postgres store applies it as a single transaction together with flipping the
// round's resolved flag.
type Settlement struct {
	RoundID         int64
	ResolutionPrice float64
	Winner          Outcome

	Payouts   []StakePayout
	Credits   []BalanceCredit
	Wins      map[int64]int64 // user id -> number of winning stakes this round
	Referrals []ReferralCredit

	// RatingUsers lists users whose normalized rating score must be recomputed
	// after the transaction commits.
	RatingUsers []int64
}

// ComputeFunc produces a Settlement from a round and its stakes. It is called
// by the round store inside the settlement transaction, after the round row is
// locked and its stakes re-read, so the computation sees a frozen snapshot.
// referrers maps user id to referrer id for every staking user that has one.
type ComputeFunc func(round Round, stakes []Stake, referrers map[int64]int64) (Settlement, error)
