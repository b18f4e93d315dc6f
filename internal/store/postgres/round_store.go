package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/priceduel/priceduel/internal/domain"
)

// RoundStore implements domain.RoundStore using PostgreSQL.
type RoundStore struct {
	pool *pgxpool.Pool
}

// NewRoundStore creates a RoundStore backed by the given connection pool.
func NewRoundStore(pool *pgxpool.Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

const roundSelectCols = `id, scheduled_at, opening_price, resolution_price, resolved, created_at`

func scanRound(row pgx.Row) (domain.Round, error) {
	var r domain.Round
	err := row.Scan(&r.ID, &r.ScheduledAt, &r.OpeningPrice, &r.ResolutionPrice, &r.Resolved, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, err
	}
	return r, nil
}

// Create inserts a round at the given scheduled time. The unique constraint on
// scheduled_at rejects a second round for the same instant.
func (s *RoundStore) Create(ctx context.Context, scheduledAt time.Time, openingPrice float64) (domain.Round, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO rounds (scheduled_at, opening_price)
		VALUES ($1, $2)
		RETURNING `+roundSelectCols,
		scheduledAt.UTC(), openingPrice,
	)
	r, err := scanRound(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Round{}, domain.ErrDuplicateRound
		}
		return domain.Round{}, fmt.Errorf("postgres: create round: %w", err)
	}
	return r, nil
}

// GetByID returns a round by id.
func (s *RoundStore) GetByID(ctx context.Context, id int64) (domain.Round, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+roundSelectCols+` FROM rounds WHERE id = $1`, id)
	r, err := scanRound(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("postgres: get round %d: %w", id, err)
	}
	return r, nil
}

// NextToSettle returns the earliest unresolved round by scheduled time.
func (s *RoundStore) NextToSettle(ctx context.Context) (domain.Round, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+roundSelectCols+`
		FROM rounds
		WHERE NOT resolved
		ORDER BY scheduled_at
		LIMIT 1`)
	r, err := scanRound(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("postgres: next round to settle: %w", err)
	}
	return r, nil
}

// NextUpcoming returns the earliest round scheduled strictly in the future.
func (s *RoundStore) NextUpcoming(ctx context.Context) (domain.Round, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+roundSelectCols+`
		FROM rounds
		WHERE scheduled_at > NOW()
		ORDER BY scheduled_at
		LIMIT 1`)
	r, err := scanRound(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("postgres: next upcoming round: %w", err)
	}
	return r, nil
}

// Previous returns the most recent round whose scheduled time has passed.
func (s *RoundStore) Previous(ctx context.Context) (domain.Round, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+roundSelectCols+`
		FROM rounds
		WHERE scheduled_at <= NOW()
		ORDER BY scheduled_at DESC
		LIMIT 1`)
	r, err := scanRound(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("postgres: previous round: %w", err)
	}
	return r, nil
}

// Latest returns the round with the greatest scheduled time.
func (s *RoundStore) Latest(ctx context.Context) (domain.Round, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+roundSelectCols+`
		FROM rounds
		ORDER BY scheduled_at DESC
		LIMIT 1`)
	r, err := scanRound(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, fmt.Errorf("postgres: latest round: %w", err)
	}
	return r, nil
}

// CountUpcoming counts unresolved rounds scheduled strictly in the future.
func (s *RoundStore) CountUpcoming(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM rounds
		WHERE NOT resolved AND scheduled_at > NOW()`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count upcoming rounds: %w", err)
	}
	return n, nil
}

// Stats returns per-currency, per-outcome stake totals for a round. Every
// currency/outcome cell is present, zeroed when nobody staked that side.
func (s *RoundStore) Stats(ctx context.Context, roundID int64) (domain.RoundStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT currency, outcome, COUNT(*), SUM(amount)
		FROM stakes
		WHERE round_id = $1
		GROUP BY currency, outcome`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: round stats: %w", err)
	}
	defer rows.Close()

	stats := domain.NewRoundStats()
	for rows.Next() {
		var (
			currency domain.Currency
			outcome  domain.Outcome
			stakers  int64
			total    float64
		)
		if err := rows.Scan(&currency, &outcome, &stakers, &total); err != nil {
			return nil, fmt.Errorf("postgres: scan round stats: %w", err)
		}
		stats[currency][outcome] = domain.OutcomeTotals{Stakers: stakers, Total: total}
	}
	return stats, rows.Err()
}

// Settle applies the settlement produced by compute as one transaction. The
// round row is locked FOR UPDATE, its resolved flag checked under that lock,
// and the stakes re-read inside the transaction, so compute always sees a
// frozen snapshot and a round settles at most once.
func (s *RoundStore) Settle(ctx context.Context, roundID int64, compute domain.ComputeFunc) (domain.Settlement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("postgres: begin settle tx: %w", err)
	}
	defer tx.Rollback(ctx)

	round, err := scanRound(tx.QueryRow(ctx,
		`SELECT `+roundSelectCols+` FROM rounds WHERE id = $1 FOR UPDATE`, roundID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Settlement{}, domain.ErrNotFound
		}
		return domain.Settlement{}, fmt.Errorf("postgres: lock round %d: %w", roundID, err)
	}
	if round.Resolved {
		return domain.Settlement{}, domain.ErrRoundResolved
	}

	stakes, err := listRoundStakes(ctx, tx, roundID)
	if err != nil {
		return domain.Settlement{}, err
	}

	referrers, err := listReferrers(ctx, tx, stakes)
	if err != nil {
		return domain.Settlement{}, err
	}

	sett, err := compute(round, stakes, referrers)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("postgres: compute settlement: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range sett.Payouts {
		batch.Queue(`UPDATE stakes SET payout = $2 WHERE id = $1`, p.StakeID, p.Payout)
	}
	for _, c := range sett.Credits {
		switch c.Currency {
		case domain.CurrencyUSDT:
			batch.Queue(`UPDATE users SET balance_usdt = balance_usdt + $2 WHERE id = $1`,
				c.UserID, c.Amount)
		default:
			batch.Queue(`UPDATE users SET balance_points = balance_points + $2 WHERE id = $1`,
				c.UserID, c.Amount)
		}
	}
	for userID, wins := range sett.Wins {
		batch.Queue(`UPDATE users SET wins = wins + $2 WHERE id = $1`, userID, wins)
	}
	for _, rc := range sett.Referrals {
		batch.Queue(`
			INSERT INTO referral_credits (id, user_id, referrer_id, stake_id, amount, currency)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rc.ID, rc.UserID, rc.ReferrerID, rc.StakeID, rc.Amount, rc.Currency)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return domain.Settlement{}, fmt.Errorf("postgres: apply settlement item %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return domain.Settlement{}, fmt.Errorf("postgres: close settlement batch: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE rounds SET resolution_price = $2, resolved = TRUE
		WHERE id = $1 AND NOT resolved`,
		roundID, sett.ResolutionPrice,
	)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("postgres: mark round resolved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Settlement{}, domain.ErrRoundResolved
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Settlement{}, fmt.Errorf("postgres: commit settlement: %w", err)
	}
	return sett, nil
}

func listRoundStakes(ctx context.Context, tx pgx.Tx, roundID int64) ([]domain.Stake, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+stakeSelectCols+` FROM stakes WHERE round_id = $1 ORDER BY id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list round stakes: %w", err)
	}
	defer rows.Close()
	return scanStakeRows(rows)
}

func listReferrers(ctx context.Context, tx pgx.Tx, stakes []domain.Stake) (map[int64]int64, error) {
	ids := make([]int64, 0, len(stakes))
	seen := make(map[int64]bool, len(stakes))
	for _, st := range stakes {
		if !seen[st.UserID] {
			seen[st.UserID] = true
			ids = append(ids, st.UserID)
		}
	}
	if len(ids) == 0 {
		return map[int64]int64{}, nil
	}

	rows, err := tx.Query(ctx, `
		SELECT id, referrer_id FROM users
		WHERE id = ANY($1) AND referrer_id IS NOT NULL`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: list referrers: %w", err)
	}
	defer rows.Close()

	referrers := make(map[int64]int64)
	for rows.Next() {
		var userID, refID int64
		if err := rows.Scan(&userID, &refID); err != nil {
			return nil, fmt.Errorf("postgres: scan referrer: %w", err)
		}
		referrers[userID] = refID
	}
	return referrers, rows.Err()
}

// Compile-time interface check.
var _ domain.RoundStore = (*RoundStore)(nil)
