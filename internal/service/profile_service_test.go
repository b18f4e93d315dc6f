package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceduel/priceduel/internal/domain"
)

type stubUserStore struct {
	users   map[int64]domain.User
	created []domain.NewUser
	avatars map[int64]string
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{
		users:   make(map[int64]domain.User),
		avatars: make(map[int64]string),
	}
}

func (s *stubUserStore) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *stubUserStore) Create(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	s.created = append(s.created, nu)
	u := domain.User{ID: nu.ID, Name: nu.Name, Nickname: nu.Nickname, ReferrerID: nu.ReferrerID}
	s.users[nu.ID] = u
	return u, nil
}

func (s *stubUserStore) SetAvatar(ctx context.Context, id int64, url string) error {
	s.avatars[id] = url
	return nil
}

type stubRatingStore struct {
	scores map[int64]float64
	ranks  map[int64]int64
}

func newStubRatingStore() *stubRatingStore {
	return &stubRatingStore{
		scores: make(map[int64]float64),
		ranks:  make(map[int64]int64),
	}
}

func (s *stubRatingStore) SetScore(ctx context.Context, userID int64, score float64) error {
	s.scores[userID] = score
	return nil
}

func (s *stubRatingStore) Rank(ctx context.Context, userID int64) (int64, float64, error) {
	rank, ok := s.ranks[userID]
	if !ok {
		return 0, 0, domain.ErrNotFound
	}
	return rank, s.scores[userID], nil
}

func (s *stubRatingStore) Range(ctx context.Context, offset, limit int64) ([]domain.RatingEntry, error) {
	return nil, nil
}

type stubAvatarStore struct {
	url  string
	puts int
}

func (s *stubAvatarStore) Put(ctx context.Context, userID int64, body io.Reader, size int64, contentType string) (string, error) {
	s.puts++
	return s.url, nil
}

type stubReferralStore struct {
	credits []domain.ReferralCredit
}

func (s *stubReferralStore) ListByReferrer(ctx context.Context, referrerID int64, limit int) ([]domain.ReferralCredit, error) {
	if limit < len(s.credits) {
		return s.credits[:limit], nil
	}
	return s.credits, nil
}

func newProfileService(users *stubUserStore, scores *stubRatingStore, avatars domain.AvatarStore) *ProfileService {
	return NewProfileService(users, &stubReferralStore{}, scores, avatars, nil, testLogger())
}

func TestGetOrCreate_CreatesWithZeroScore(t *testing.T) {
	users := newStubUserStore()
	scores := newStubRatingStore()
	svc := newProfileService(users, scores, nil)

	view, err := svc.GetOrCreate(context.Background(), domain.NewUser{ID: 42, Name: "Ann", Nickname: "ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.User.ID)
	require.Len(t, users.created, 1)

	score, ok := scores.scores[42]
	require.True(t, ok, "new profile should get a leaderboard entry")
	assert.Zero(t, score)
}

func TestGetOrCreate_ExistingProfileIsReturnedAsIs(t *testing.T) {
	users := newStubUserStore()
	users.users[42] = domain.User{ID: 42, Nickname: "ann"}
	scores := newStubRatingStore()
	scores.scores[42] = 1500
	scores.ranks[42] = 3
	svc := newProfileService(users, scores, nil)

	view, err := svc.GetOrCreate(context.Background(), domain.NewUser{ID: 42, Nickname: "other"})
	require.NoError(t, err)
	assert.Empty(t, users.created)
	assert.Equal(t, "ann", view.User.Nickname)
	assert.Equal(t, int64(3), view.Rank)
	assert.Equal(t, 1500.0, view.Score)
}

func TestGet_UnknownProfile(t *testing.T) {
	svc := newProfileService(newStubUserStore(), newStubRatingStore(), nil)

	_, err := svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_NoRatingEntryLeavesRankZero(t *testing.T) {
	users := newStubUserStore()
	users.users[42] = domain.User{ID: 42}
	svc := newProfileService(users, newStubRatingStore(), nil)

	view, err := svc.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, view.Rank)
	assert.Zero(t, view.Score)
}

func TestSetAvatar_StoresURLOnProfile(t *testing.T) {
	users := newStubUserStore()
	users.users[42] = domain.User{ID: 42}
	avatars := &stubAvatarStore{url: "https://cdn.example.com/avatars/42"}
	svc := newProfileService(users, newStubRatingStore(), avatars)

	url, err := svc.SetAvatar(context.Background(), 42, strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/42", url)
	assert.Equal(t, 1, avatars.puts)
	assert.Equal(t, url, users.avatars[42])
}

func TestSetAvatar_UnknownUser(t *testing.T) {
	avatars := &stubAvatarStore{url: "https://cdn.example.com/avatars/42"}
	svc := newProfileService(newStubUserStore(), newStubRatingStore(), avatars)

	_, err := svc.SetAvatar(context.Background(), 42, strings.NewReader("png"), 3, "image/png")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, avatars.puts)
}

func TestSetAvatar_StorageNotConfigured(t *testing.T) {
	users := newStubUserStore()
	users.users[42] = domain.User{ID: 42}
	svc := newProfileService(users, newStubRatingStore(), nil)

	_, err := svc.SetAvatar(context.Background(), 42, strings.NewReader("png"), 3, "image/png")
	assert.Error(t, err)
}

func TestReferrals_ClampsLimit(t *testing.T) {
	refs := &stubReferralStore{}
	for i := 0; i < 60; i++ {
		refs.credits = append(refs.credits, domain.ReferralCredit{ReferrerID: 42})
	}
	svc := NewProfileService(newStubUserStore(), refs, newStubRatingStore(), nil, nil, testLogger())

	credits, err := svc.Referrals(context.Background(), 42, 0)
	require.NoError(t, err)
	assert.Len(t, credits, 50)
}
