package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/priceduel/priceduel/internal/domain"
)

// StakeStore implements domain.StakeStore using PostgreSQL.
type StakeStore struct {
	pool *pgxpool.Pool
}

// NewStakeStore creates a StakeStore backed by the given connection pool.
func NewStakeStore(pool *pgxpool.Pool) *StakeStore {
	return &StakeStore{pool: pool}
}

const stakeSelectCols = `id, round_id, user_id, currency, outcome, amount, payout, created_at`

func scanStakeRows(rows pgx.Rows) ([]domain.Stake, error) {
	var stakes []domain.Stake
	for rows.Next() {
		var st domain.Stake
		if err := rows.Scan(
			&st.ID, &st.RoundID, &st.UserID, &st.Currency,
			&st.Outcome, &st.Amount, &st.Payout, &st.CreatedAt,
		); err != nil {
			return nil, err
		}
		stakes = append(stakes, st)
	}
	return stakes, rows.Err()
}

// Place debits the user's balance and upserts the stake in one transaction.
// Adding to an existing position accumulates the amount; the outcome must
// match the existing position. The round row is share-locked so placement
// cannot interleave with the settlement transaction.
func (s *StakeStore) Place(ctx context.Context, p domain.StakePlacement) (domain.Stake, error) {
	// Points are whole units.
	if p.Currency == domain.CurrencyPoints {
		p.Amount = math.Floor(p.Amount)
	}
	if p.Amount <= 0 {
		return domain.Stake{}, domain.ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Stake{}, fmt.Errorf("postgres: begin stake tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var resolved, open bool
	err = tx.QueryRow(ctx, `
		SELECT resolved, scheduled_at > NOW()
		FROM rounds WHERE id = $1
		FOR SHARE`,
		p.RoundID,
	).Scan(&resolved, &open)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Stake{}, domain.ErrNotFound
		}
		return domain.Stake{}, fmt.Errorf("postgres: lock round %d: %w", p.RoundID, err)
	}
	if resolved || !open {
		return domain.Stake{}, domain.ErrRoundClosed
	}

	var existing domain.Outcome
	err = tx.QueryRow(ctx, `
		SELECT outcome FROM stakes
		WHERE round_id = $1 AND user_id = $2 AND currency = $3`,
		p.RoundID, p.UserID, p.Currency,
	).Scan(&existing)
	switch {
	case err == nil:
		if existing != p.Outcome {
			return domain.Stake{}, domain.ErrOutcomeMismatch
		}
	case errors.Is(err, pgx.ErrNoRows):
		// first stake in this currency
	default:
		return domain.Stake{}, fmt.Errorf("postgres: check existing position: %w", err)
	}

	balanceCol := "balance_points"
	if p.Currency == domain.CurrencyUSDT {
		balanceCol = "balance_usdt"
	}
	tag, err := tx.Exec(ctx, `
		UPDATE users SET `+balanceCol+` = `+balanceCol+` - $2
		WHERE id = $1 AND `+balanceCol+` >= $2`,
		p.UserID, p.Amount,
	)
	if err != nil {
		return domain.Stake{}, fmt.Errorf("postgres: debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, p.UserID,
		).Scan(&exists); err != nil {
			return domain.Stake{}, fmt.Errorf("postgres: check user %d: %w", p.UserID, err)
		}
		if !exists {
			return domain.Stake{}, domain.ErrNotFound
		}
		return domain.Stake{}, domain.ErrInsufficientBalance
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO stakes (round_id, user_id, currency, outcome, amount)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (round_id, user_id, currency)
		DO UPDATE SET amount = stakes.amount + EXCLUDED.amount
		RETURNING `+stakeSelectCols,
		p.RoundID, p.UserID, p.Currency, p.Outcome, p.Amount,
	)
	var st domain.Stake
	if err := row.Scan(
		&st.ID, &st.RoundID, &st.UserID, &st.Currency,
		&st.Outcome, &st.Amount, &st.Payout, &st.CreatedAt,
	); err != nil {
		return domain.Stake{}, fmt.Errorf("postgres: upsert stake: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Stake{}, fmt.Errorf("postgres: commit stake: %w", err)
	}
	return st, nil
}

// ListByUser returns the user's stakes, newest round first.
func (s *StakeStore) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Stake, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT stakes.id, stakes.round_id, stakes.user_id, stakes.currency,
		       stakes.outcome, stakes.amount, stakes.payout, stakes.created_at
		FROM stakes
		JOIN rounds ON rounds.id = stakes.round_id
		WHERE stakes.user_id = $1
		ORDER BY rounds.scheduled_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stakes by user: %w", err)
	}
	defer rows.Close()
	return scanStakeRows(rows)
}

// ListByUserAndRound returns the user's stakes on one round.
func (s *StakeStore) ListByUserAndRound(ctx context.Context, userID, roundID int64) ([]domain.Stake, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+stakeSelectCols+`
		FROM stakes
		WHERE user_id = $1 AND round_id = $2
		ORDER BY id`,
		userID, roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stakes by user and round: %w", err)
	}
	defer rows.Close()
	return scanStakeRows(rows)
}

// WinningScore sums the user's normalized rating score over all winning stakes
// on resolved rounds.
func (s *StakeStore) WinningScore(ctx context.Context, userID int64) (float64, error) {
	var score float64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(
			CASE stakes.currency
				WHEN $2 THEN stakes.payout * $3
				ELSE stakes.payout
			END), 0)
		FROM stakes
		JOIN rounds ON rounds.id = stakes.round_id
		WHERE stakes.user_id = $1
		  AND rounds.resolved
		  AND stakes.payout > 0`,
		userID, domain.CurrencyUSDT, float64(domain.RatingUSDTMultiplier),
	).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("postgres: winning score for user %d: %w", userID, err)
	}
	return score, nil
}

// Compile-time interface check.
var _ domain.StakeStore = (*StakeStore)(nil)
