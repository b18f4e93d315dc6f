package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/priceduel/priceduel/internal/domain"
)

// Rating recomputes normalized skill scores and writes them to the ranked
// store. Scores are always recomputed from the full stake history rather than
// accumulated incrementally, so a rerun with unchanged inputs is a no-op.
type Rating struct {
	stakes domain.StakeStore
	scores domain.RatingStore
	logger *slog.Logger
}

// NewRating creates a Rating service.
func NewRating(stakes domain.StakeStore, scores domain.RatingStore, logger *slog.Logger) *Rating {
	return &Rating{
		stakes: stakes,
		scores: scores,
		logger: logger.With(slog.String("component", "rating")),
	}
}

// Recompute sums the user's winning stakes (points payouts at face value,
// stable payouts scaled) and writes the result to the rating store.
func (r *Rating) Recompute(ctx context.Context, userID int64) error {
	score, err := r.stakes.WinningScore(ctx, userID)
	if err != nil {
		return fmt.Errorf("game: winning score for user %d: %w", userID, err)
	}
	if err := r.scores.SetScore(ctx, userID, score); err != nil {
		return fmt.Errorf("game: set rating score for user %d: %w", userID, err)
	}
	r.logger.DebugContext(ctx, "rating recomputed",
		slog.Int64("user_id", userID),
		slog.Float64("score", score),
	)
	return nil
}
