package domain

import "time"

// User is a player profile. BalancePoints and BalanceUSDT are debited at stake
// placement and credited only inside the settlement transaction. Wins and the
// rating score grow monotonically.
type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Nickname      string    `json:"nickname,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	ReferrerID    *int64    `json:"referrer_id,omitempty"`
	BalancePoints float64   `json:"balance_points"`
	BalanceUSDT   float64   `json:"balance_usdt"`
	Wins          int64     `json:"wins"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReferralCredit records a referral share paid to a referrer out of a referred
// user's winning stake. Credits are auxiliary events; the referrer's points
// balance is incremented in the same settlement transaction that writes the row.
type ReferralCredit struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	ReferrerID int64     `json:"referrer_id"`
	StakeID    int64     `json:"stake_id"`
	Amount     float64   `json:"amount"`
	Currency   Currency  `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}
