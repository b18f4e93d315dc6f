package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/priceduel/priceduel/internal/domain"
	"github.com/priceduel/priceduel/internal/game"
)

// ProfileView is a user profile together with leaderboard standing.
type ProfileView struct {
	User  domain.User `json:"user"`
	Score float64     `json:"score"`
	Rank  int64       `json:"rank,omitempty"`
}

// ProfileService handles player profiles, avatars, referral history, and the
// leaderboard read side.
type ProfileService struct {
	users     domain.UserStore
	referrals domain.ReferralStore
	scores    domain.RatingStore
	avatars   domain.AvatarStore
	rating    *game.Rating
	logger    *slog.Logger
}

// NewProfileService creates a ProfileService.
func NewProfileService(
	users domain.UserStore,
	referrals domain.ReferralStore,
	scores domain.RatingStore,
	avatars domain.AvatarStore,
	rating *game.Rating,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		users:     users,
		referrals: referrals,
		scores:    scores,
		avatars:   avatars,
		rating:    rating,
		logger:    logger,
	}
}

// GetOrCreate returns the stored profile, creating it on first contact. A new
// profile gets a zero leaderboard entry so it shows up in the rating
// immediately.
func (s *ProfileService) GetOrCreate(ctx context.Context, nu domain.NewUser) (ProfileView, error) {
	user, err := s.users.GetByID(ctx, nu.ID)
	if errors.Is(err, domain.ErrNotFound) {
		user, err = s.users.Create(ctx, nu)
		if err == nil {
			if scoreErr := s.scores.SetScore(ctx, user.ID, 0); scoreErr != nil {
				s.logger.WarnContext(ctx, "initial rating entry failed",
					slog.Int64("user_id", user.ID),
					slog.String("error", scoreErr.Error()),
				)
			}
		}
	}
	if err != nil {
		return ProfileView{}, fmt.Errorf("profile_service: get or create %d: %w", nu.ID, err)
	}
	return s.view(ctx, user), nil
}

// Get returns an existing profile with its leaderboard standing.
func (s *ProfileService) Get(ctx context.Context, id int64) (ProfileView, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return ProfileView{}, fmt.Errorf("profile_service: get %d: %w", id, err)
	}
	return s.view(ctx, user), nil
}

func (s *ProfileService) view(ctx context.Context, user domain.User) ProfileView {
	v := ProfileView{User: user}
	rank, score, err := s.scores.Rank(ctx, user.ID)
	if err == nil {
		v.Rank = rank
		v.Score = score
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "rank lookup failed",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return v
}

// SetAvatar uploads the avatar image to object storage and records its public
// URL on the profile.
func (s *ProfileService) SetAvatar(ctx context.Context, userID int64, body io.Reader, size int64, contentType string) (string, error) {
	if s.avatars == nil {
		return "", fmt.Errorf("profile_service: avatar storage is not configured")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return "", fmt.Errorf("profile_service: get %d: %w", userID, err)
	}
	url, err := s.avatars.Put(ctx, userID, body, size, contentType)
	if err != nil {
		return "", fmt.Errorf("profile_service: upload avatar: %w", err)
	}
	if err := s.users.SetAvatar(ctx, userID, url); err != nil {
		return "", fmt.Errorf("profile_service: set avatar: %w", err)
	}
	s.logger.InfoContext(ctx, "avatar updated", slog.Int64("user_id", userID))
	return url, nil
}

// Referrals lists referral credits earned by the user, newest first.
func (s *ProfileService) Referrals(ctx context.Context, referrerID int64, limit int) ([]domain.ReferralCredit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	credits, err := s.referrals.ListByReferrer(ctx, referrerID, limit)
	if err != nil {
		return nil, fmt.Errorf("profile_service: list referrals: %w", err)
	}
	return credits, nil
}

// Leaderboard returns a page of rating entries in descending score order.
func (s *ProfileService) Leaderboard(ctx context.Context, offset, limit int64) ([]domain.RatingEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	entries, err := s.scores.Range(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("profile_service: rating range: %w", err)
	}
	return entries, nil
}

// RefreshScore recomputes the user's rating from settled stakes. Exposed for
// reconciliation; settlement keeps scores current on its own.
func (s *ProfileService) RefreshScore(ctx context.Context, userID int64) error {
	if err := s.rating.Recompute(ctx, userID); err != nil {
		return fmt.Errorf("profile_service: refresh score: %w", err)
	}
	return nil
}
