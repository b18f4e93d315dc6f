package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/priceduel/priceduel/internal/domain"
)

// RatingService defines what the rating handler needs from the service layer.
type RatingService interface {
	Leaderboard(ctx context.Context, offset, limit int64) ([]domain.RatingEntry, error)
}

// RatingHandler serves the leaderboard endpoint.
type RatingHandler struct {
	rating RatingService
	logger *slog.Logger
}

// NewRatingHandler creates a RatingHandler.
func NewRatingHandler(rating RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{
		rating: rating,
		logger: logger,
	}
}

// Leaderboard returns a page of rating entries in descending score order.
// GET /api/rating?limit=50&offset=0
func (h *RatingHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)

	entries, err := h.rating.Leaderboard(r.Context(), int64(offset), int64(limit))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: leaderboard failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load rating")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}
