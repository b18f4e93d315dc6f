package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/priceduel/priceduel/internal/domain"
)

// StartingPointsBalance is credited to every new profile.
const StartingPointsBalance = 20000

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a UserStore backed by the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userSelectCols = `id, name, nickname, avatar_url, referrer_id,
	balance_points, balance_usdt, wins, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Nickname, &u.AvatarURL, &u.ReferrerID,
		&u.BalancePoints, &u.BalanceUSDT, &u.Wins, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// GetByID returns a profile by id.
func (s *UserStore) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("postgres: get user %d: %w", id, err)
	}
	return u, nil
}

// Create inserts the profile with the starting points balance if it does not
// exist, and returns the stored row either way.
func (s *UserStore) Create(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, nickname, referrer_id, balance_points)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		nu.ID, nu.Name, nu.Nickname, nu.ReferrerID, float64(StartingPointsBalance),
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: create user %d: %w", nu.ID, err)
	}
	return s.GetByID(ctx, nu.ID)
}

// SetAvatar stores the avatar URL for a profile.
func (s *UserStore) SetAvatar(ctx context.Context, id int64, url string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET avatar_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("postgres: set avatar for user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.UserStore = (*UserStore)(nil)
