package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/priceduel/priceduel/internal/domain"
)

// ReferralStore implements domain.ReferralStore using PostgreSQL. Credit rows
// are inserted by the settlement transaction in RoundStore.Settle; this store
// only reads history.
type ReferralStore struct {
	pool *pgxpool.Pool
}

// NewReferralStore creates a ReferralStore backed by the given connection pool.
func NewReferralStore(pool *pgxpool.Pool) *ReferralStore {
	return &ReferralStore{pool: pool}
}

// ListByReferrer returns credits earned by a referrer, newest first.
func (s *ReferralStore) ListByReferrer(ctx context.Context, referrerID int64, limit int) ([]domain.ReferralCredit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, referrer_id, stake_id, amount, currency, created_at
		FROM referral_credits
		WHERE referrer_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		referrerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list referral credits: %w", err)
	}
	defer rows.Close()

	var credits []domain.ReferralCredit
	for rows.Next() {
		var rc domain.ReferralCredit
		if err := rows.Scan(
			&rc.ID, &rc.UserID, &rc.ReferrerID, &rc.StakeID,
			&rc.Amount, &rc.Currency, &rc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan referral credit: %w", err)
		}
		credits = append(credits, rc)
	}
	return credits, rows.Err()
}

// Compile-time interface check.
var _ domain.ReferralStore = (*ReferralStore)(nil)
