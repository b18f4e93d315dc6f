package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/priceduel/priceduel/internal/domain"
	"github.com/priceduel/priceduel/internal/service"
)

// RoundService defines the methods the round handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type RoundService interface {
	NextRound(ctx context.Context) (service.NextRoundView, error)
	RoundResult(ctx context.Context, roundID int64) (service.RoundResultView, error)
	PlaceStake(ctx context.Context, p domain.StakePlacement) (domain.Stake, error)
	PreviousWinnings(ctx context.Context, userID int64) (service.RoundWinnings, error)
	UserStakes(ctx context.Context, userID int64, limit int) ([]domain.Stake, error)
}

// RoundHandler serves round and stake endpoints.
type RoundHandler struct {
	rounds RoundService
	logger *slog.Logger
}

// NewRoundHandler creates a RoundHandler with the given service and logger.
func NewRoundHandler(rounds RoundService, logger *slog.Logger) *RoundHandler {
	return &RoundHandler{
		rounds: rounds,
		logger: logger,
	}
}

// NextRound returns the upcoming round with its live stake totals.
// GET /api/rounds/next
func (h *RoundHandler) NextRound(w http.ResponseWriter, r *http.Request) {
	view, err := h.rounds.NextRound(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no upcoming round")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: next round failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load next round")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RoundResult returns a round by ID with totals and, once settled, the winner.
// GET /api/rounds/{id}/result
func (h *RoundHandler) RoundResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}

	view, err := h.rounds.RoundResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "round not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: round result failed",
			slog.Int64("round_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load round")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// placeStakeRequest is the POST body for stake placement.
type placeStakeRequest struct {
	UserID   int64           `json:"user_id"`
	Currency domain.Currency `json:"currency"`
	Outcome  domain.Outcome  `json:"outcome"`
	Amount   float64         `json:"amount"`
}

// PlaceStake places or tops up a stake on an open round.
// POST /api/rounds/{id}/stakes
func (h *RoundHandler) PlaceStake(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}

	var req placeStakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}

	stake, err := h.rounds.PlaceStake(r.Context(), domain.StakePlacement{
		RoundID:  id,
		UserID:   req.UserID,
		Currency: req.Currency,
		Outcome:  req.Outcome,
		Amount:   req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "round or user not found")
		case service.IsClientError(err):
			writeError(w, http.StatusUnprocessableEntity, clientErrorMessage(err))
		default:
			h.logger.ErrorContext(r.Context(), "handler: place stake failed",
				slog.Int64("round_id", id),
				slog.Int64("user_id", req.UserID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to place stake")
		}
		return
	}
	writeJSON(w, http.StatusCreated, stake)
}

// PreviousWinnings returns the caller's payouts for the just-finished round.
// GET /api/rounds/previous/winnings?user_id=N
func (h *RoundHandler) PreviousWinnings(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryID(r, "user_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}

	winnings, err := h.rounds.PreviousWinnings(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no winnings available")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: previous winnings failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load winnings")
		return
	}
	writeJSON(w, http.StatusOK, winnings)
}

// UserStakes lists the caller's recent stakes.
// GET /api/stakes?user_id=N&limit=50
func (h *RoundHandler) UserStakes(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryID(r, "user_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}

	stakes, err := h.rounds.UserStakes(r.Context(), userID, queryInt(r, "limit", 50))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list stakes failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list stakes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stakes": stakes})
}

func clientErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoundClosed):
		return "round is closed for staking"
	case errors.Is(err, domain.ErrOutcomeMismatch):
		return "stake conflicts with existing position"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient balance"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid stake"
	default:
		return "invalid request"
	}
}
