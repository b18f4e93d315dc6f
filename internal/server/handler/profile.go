package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/priceduel/priceduel/internal/domain"
	"github.com/priceduel/priceduel/internal/service"
)

// maxAvatarSize caps avatar upload bodies at 2 MiB.
const maxAvatarSize = 2 << 20

// ProfileService defines what the profile handler needs from the service layer.
type ProfileService interface {
	GetOrCreate(ctx context.Context, nu domain.NewUser) (service.ProfileView, error)
	Get(ctx context.Context, id int64) (service.ProfileView, error)
	SetAvatar(ctx context.Context, userID int64, body io.Reader, size int64, contentType string) (string, error)
	Referrals(ctx context.Context, referrerID int64, limit int) ([]domain.ReferralCredit, error)
}

// ProfileHandler serves profile, avatar, and referral endpoints.
type ProfileHandler struct {
	profiles ProfileService
	logger   *slog.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(profiles ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger,
	}
}

// createProfileRequest is the POST body for profile registration.
type createProfileRequest struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Nickname   string `json:"nickname"`
	ReferrerID *int64 `json:"referrer_id,omitempty"`
}

// CreateProfile registers a profile, or returns the existing one.
// POST /api/profiles
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	view, err := h.profiles.GetOrCreate(r.Context(), domain.NewUser{
		ID:         req.ID,
		Name:       req.Name,
		Nickname:   req.Nickname,
		ReferrerID: req.ReferrerID,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create profile failed",
			slog.Int64("user_id", req.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create profile")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetProfile returns a profile with its leaderboard standing.
// GET /api/profiles/{id}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	view, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get profile failed",
			slog.Int64("user_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UploadAvatar stores the request body as the profile's avatar image.
// PUT /api/profiles/{id}/avatar
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		writeError(w, http.StatusBadRequest, "missing content type")
		return
	}
	if r.ContentLength <= 0 || r.ContentLength > maxAvatarSize {
		writeError(w, http.StatusBadRequest, "avatar must be between 1 byte and 2 MiB")
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxAvatarSize)
	url, err := h.profiles.SetAvatar(r.Context(), id, body, r.ContentLength, contentType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: upload avatar failed",
			slog.Int64("user_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to upload avatar")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}

// Referrals lists referral credits earned by the profile, newest first.
// GET /api/profiles/{id}/referrals?limit=50
func (h *ProfileHandler) Referrals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	credits, err := h.profiles.Referrals(r.Context(), id, queryInt(r, "limit", 50))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list referrals failed",
			slog.Int64("user_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list referrals")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"referrals": credits})
}
