package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceduel/priceduel/internal/domain"
	"github.com/priceduel/priceduel/internal/service"
)

func TestCreateProfile(t *testing.T) {
	svc := &fakeProfileService{view: service.ProfileView{
		User: domain.User{ID: 42, Nickname: "ann"},
	}}
	mux := testMux(t, nil, NewProfileHandler(svc, testLogger()), nil)

	body := `{"id":42,"name":"Ann","nickname":"ann","referrer_id":7}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.created, 1)
	assert.Equal(t, int64(42), svc.created[0].ID)
	require.NotNil(t, svc.created[0].ReferrerID)
	assert.Equal(t, int64(7), *svc.created[0].ReferrerID)
}

func TestCreateProfile_MissingID(t *testing.T) {
	mux := testMux(t, nil, NewProfileHandler(&fakeProfileService{}, testLogger()), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/profiles", strings.NewReader(`{"name":"Ann"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProfile(t *testing.T) {
	svc := &fakeProfileService{view: service.ProfileView{
		User:  domain.User{ID: 42},
		Score: 1500,
		Rank:  3,
	}}
	mux := testMux(t, nil, NewProfileHandler(svc, testLogger()), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var view service.ProfileView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, int64(3), view.Rank)
}

func TestGetProfile_NotFound(t *testing.T) {
	svc := &fakeProfileService{viewErr: domain.ErrNotFound}
	mux := testMux(t, nil, NewProfileHandler(svc, testLogger()), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/42", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadAvatar(t *testing.T) {
	svc := &fakeProfileService{avatarURL: "https://cdn.example.com/avatars/42"}
	mux := testMux(t, nil, NewProfileHandler(svc, testLogger()), nil)

	req := httptest.NewRequest(http.MethodPut, "/api/profiles/42/avatar", strings.NewReader("png-bytes"))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "avatar_url")
	assert.Equal(t, []int64{42}, svc.uploaded)
}

func TestUploadAvatar_MissingContentType(t *testing.T) {
	mux := testMux(t, nil, NewProfileHandler(&fakeProfileService{}, testLogger()), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/profiles/42/avatar", strings.NewReader("png")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadAvatar_TooLarge(t *testing.T) {
	mux := testMux(t, nil, NewProfileHandler(&fakeProfileService{}, testLogger()), nil)

	req := httptest.NewRequest(http.MethodPut, "/api/profiles/42/avatar", strings.NewReader("x"))
	req.Header.Set("Content-Type", "image/png")
	req.ContentLength = maxAvatarSize + 1
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReferrals(t *testing.T) {
	svc := &fakeProfileService{credits: []domain.ReferralCredit{
		{ID: "a", ReferrerID: 42, Amount: 50, Currency: domain.CurrencyPoints},
	}}
	mux := testMux(t, nil, NewProfileHandler(svc, testLogger()), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/42/referrals", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Referrals []domain.ReferralCredit `json:"referrals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Referrals, 1)
	assert.Equal(t, 50.0, resp.Referrals[0].Amount)
}

func TestLeaderboard(t *testing.T) {
	svc := &fakeRatingService{entries: []domain.RatingEntry{
		{UserID: 10, Score: 388000, Rank: 1},
		{UserID: 20, Score: 200, Rank: 2},
	}}
	mux := testMux(t, nil, nil, NewRatingHandler(svc, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rating?limit=10&offset=0", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Entries []domain.RatingEntry `json:"entries"`
		Limit   int                  `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, int64(10), resp.Entries[0].UserID)
	assert.Equal(t, 10, resp.Limit)
}
