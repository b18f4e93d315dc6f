package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/priceduel/priceduel/internal/domain"
	"github.com/priceduel/priceduel/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testMux registers the handlers under the same patterns the server uses so
// path values resolve in tests.
func testMux(t *testing.T, rounds *RoundHandler, profiles *ProfileHandler, rating *RatingHandler) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	if rounds != nil {
		mux.HandleFunc("GET /api/rounds/next", rounds.NextRound)
		mux.HandleFunc("GET /api/rounds/previous/winnings", rounds.PreviousWinnings)
		mux.HandleFunc("GET /api/rounds/{id}/result", rounds.RoundResult)
		mux.HandleFunc("POST /api/rounds/{id}/stakes", rounds.PlaceStake)
		mux.HandleFunc("GET /api/stakes", rounds.UserStakes)
	}
	if profiles != nil {
		mux.HandleFunc("POST /api/profiles", profiles.CreateProfile)
		mux.HandleFunc("GET /api/profiles/{id}", profiles.GetProfile)
		mux.HandleFunc("PUT /api/profiles/{id}/avatar", profiles.UploadAvatar)
		mux.HandleFunc("GET /api/profiles/{id}/referrals", profiles.Referrals)
	}
	if rating != nil {
		mux.HandleFunc("GET /api/rating", rating.Leaderboard)
	}
	return mux
}

type fakeRoundService struct {
	next        service.NextRoundView
	nextErr     error
	result      service.RoundResultView
	resultErr   error
	stake       domain.Stake
	stakeErr    error
	placed      []domain.StakePlacement
	winnings    service.RoundWinnings
	winningsErr error
	stakes      []domain.Stake
	stakesErr   error
}

func (f *fakeRoundService) NextRound(ctx context.Context) (service.NextRoundView, error) {
	return f.next, f.nextErr
}

func (f *fakeRoundService) RoundResult(ctx context.Context, roundID int64) (service.RoundResultView, error) {
	return f.result, f.resultErr
}

func (f *fakeRoundService) PlaceStake(ctx context.Context, p domain.StakePlacement) (domain.Stake, error) {
	if f.stakeErr != nil {
		return domain.Stake{}, f.stakeErr
	}
	f.placed = append(f.placed, p)
	return f.stake, nil
}

func (f *fakeRoundService) PreviousWinnings(ctx context.Context, userID int64) (service.RoundWinnings, error) {
	return f.winnings, f.winningsErr
}

func (f *fakeRoundService) UserStakes(ctx context.Context, userID int64, limit int) ([]domain.Stake, error) {
	return f.stakes, f.stakesErr
}

type fakeProfileService struct {
	view      service.ProfileView
	viewErr   error
	created   []domain.NewUser
	avatarURL string
	avatarErr error
	uploaded  []int64
	credits   []domain.ReferralCredit
}

func (f *fakeProfileService) GetOrCreate(ctx context.Context, nu domain.NewUser) (service.ProfileView, error) {
	if f.viewErr != nil {
		return service.ProfileView{}, f.viewErr
	}
	f.created = append(f.created, nu)
	return f.view, nil
}

func (f *fakeProfileService) Get(ctx context.Context, id int64) (service.ProfileView, error) {
	return f.view, f.viewErr
}

func (f *fakeProfileService) SetAvatar(ctx context.Context, userID int64, body io.Reader, size int64, contentType string) (string, error) {
	if f.avatarErr != nil {
		return "", f.avatarErr
	}
	f.uploaded = append(f.uploaded, userID)
	return f.avatarURL, nil
}

func (f *fakeProfileService) Referrals(ctx context.Context, referrerID int64, limit int) ([]domain.ReferralCredit, error) {
	return f.credits, nil
}

type fakeRatingService struct {
	entries []domain.RatingEntry
	err     error
}

func (f *fakeRatingService) Leaderboard(ctx context.Context, offset, limit int64) ([]domain.RatingEntry, error) {
	return f.entries, f.err
}

var (
	_ RoundService   = (*fakeRoundService)(nil)
	_ ProfileService = (*fakeProfileService)(nil)
	_ RatingService  = (*fakeRatingService)(nil)
)
