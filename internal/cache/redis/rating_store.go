package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/priceduel/priceduel/internal/domain"
)

const ratingKey = "rating"

// RatingStore keeps the global leaderboard in a Redis sorted set keyed by
// user ID with the normalized score as the member score.
type RatingStore struct {
	client *Client
}

var _ domain.RatingStore = (*RatingStore)(nil)

func NewRatingStore(client *Client) *RatingStore {
	return &RatingStore{client: client}
}

// SetScore replaces the user's leaderboard score.
func (s *RatingStore) SetScore(ctx context.Context, userID int64, score float64) error {
	member := redis.Z{Score: score, Member: strconv.FormatInt(userID, 10)}
	if err := s.client.rdb.ZAdd(ctx, ratingKey, member).Err(); err != nil {
		return fmt.Errorf("redis: zadd rating %d: %w", userID, err)
	}
	return nil
}

// Rank returns the user's 1-based position ordered by descending score, plus
// the score itself. Users absent from the leaderboard get ErrNotFound.
func (s *RatingStore) Rank(ctx context.Context, userID int64) (int64, float64, error) {
	member := strconv.FormatInt(userID, 10)
	rank, err := s.client.rdb.ZRevRank(ctx, ratingKey, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("redis: zrevrank %d: %w", userID, err)
	}
	score, err := s.client.rdb.ZScore(ctx, ratingKey, member).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: zscore %d: %w", userID, err)
	}
	return rank + 1, score, nil
}

// Range returns a page of leaderboard entries ordered by descending score.
func (s *RatingStore) Range(ctx context.Context, offset, limit int64) ([]domain.RatingEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := s.client.rdb.ZRevRangeWithScores(ctx, ratingKey, offset, offset+limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: zrevrange rating: %w", err)
	}
	entries := make([]domain.RatingEntry, 0, len(members))
	for i, m := range members {
		id, err := strconv.ParseInt(fmt.Sprint(m.Member), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: parse rating member: %w", err)
		}
		entries = append(entries, domain.RatingEntry{
			UserID: id,
			Score:  m.Score,
			Rank:   offset + int64(i) + 1,
		})
	}
	return entries, nil
}
