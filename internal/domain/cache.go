package domain

import (
	"context"
	"io"
	"time"
)

// PriceCache stores the last successfully fetched reference price, keyed by
// symbol, with no expiry. A failed refresh leaves the previous value in place.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64) error
	// GetPrice returns the last cached price, or ErrNotFound when no fetch has
	// ever succeeded.
	GetPrice(ctx context.Context, symbol string) (float64, error)
}

// RatingEntry is one leaderboard row.
type RatingEntry struct {
	UserID int64   `json:"user_id"`
	Score  float64 `json:"score"`
	Rank   int64   `json:"rank"`
}

// RatingStore is the ranked structure behind the leaderboard.
type RatingStore interface {
	SetScore(ctx context.Context, userID int64, score float64) error
	// Rank returns the user's 1-based position ordered by descending score,
	// together with the score. ErrNotFound when the user has no entry.
	Rank(ctx context.Context, userID int64) (rank int64, score float64, err error)
	// Range returns entries in descending score order starting at offset.
	Range(ctx context.Context, offset, limit int64) ([]RatingEntry, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// AvatarStore persists profile avatars in object storage.
type AvatarStore interface {
	// Put uploads an avatar and returns its public URL.
	Put(ctx context.Context, userID int64, body io.Reader, size int64, contentType string) (string, error)
}
