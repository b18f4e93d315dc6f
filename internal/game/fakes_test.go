package game

import (
	"context"
	"sort"
	"time"

	"github.com/priceduel/priceduel/internal/domain"
)

// fakeRoundStore is an in-memory domain.RoundStore for driving the scheduler
// and settler without a database.
type fakeRoundStore struct {
	rounds map[int64]*domain.Round
	stakes map[int64][]domain.Stake
	refs   map[int64]int64 // user id -> referrer id
	nextID int64

	now func() time.Time

	settled    []domain.Settlement
	settleErr  error
	createErr  error
	createdIDs []int64
}

func newFakeRoundStore(now func() time.Time) *fakeRoundStore {
	return &fakeRoundStore{
		rounds: make(map[int64]*domain.Round),
		stakes: make(map[int64][]domain.Stake),
		refs:   make(map[int64]int64),
		now:    now,
	}
}

func (f *fakeRoundStore) add(r domain.Round) domain.Round {
	f.nextID++
	r.ID = f.nextID
	f.rounds[r.ID] = &r
	return r
}

func (f *fakeRoundStore) sorted() []*domain.Round {
	out := make([]*domain.Round, 0, len(f.rounds))
	for _, r := range f.rounds {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

func (f *fakeRoundStore) Create(ctx context.Context, scheduledAt time.Time, openingPrice float64) (domain.Round, error) {
	if f.createErr != nil {
		return domain.Round{}, f.createErr
	}
	for _, r := range f.rounds {
		if r.ScheduledAt.Equal(scheduledAt) {
			return domain.Round{}, domain.ErrDuplicateRound
		}
	}
	r := f.add(domain.Round{ScheduledAt: scheduledAt, OpeningPrice: openingPrice})
	f.createdIDs = append(f.createdIDs, r.ID)
	return r, nil
}

func (f *fakeRoundStore) GetByID(ctx context.Context, id int64) (domain.Round, error) {
	r, ok := f.rounds[id]
	if !ok {
		return domain.Round{}, domain.ErrNotFound
	}
	return *r, nil
}

func (f *fakeRoundStore) NextToSettle(ctx context.Context) (domain.Round, error) {
	for _, r := range f.sorted() {
		if !r.Resolved {
			return *r, nil
		}
	}
	return domain.Round{}, domain.ErrNotFound
}

func (f *fakeRoundStore) NextUpcoming(ctx context.Context) (domain.Round, error) {
	for _, r := range f.sorted() {
		if r.ScheduledAt.After(f.now()) {
			return *r, nil
		}
	}
	return domain.Round{}, domain.ErrNotFound
}

func (f *fakeRoundStore) Previous(ctx context.Context) (domain.Round, error) {
	rs := f.sorted()
	for i := len(rs) - 1; i >= 0; i-- {
		if !rs[i].ScheduledAt.After(f.now()) {
			return *rs[i], nil
		}
	}
	return domain.Round{}, domain.ErrNotFound
}

func (f *fakeRoundStore) Latest(ctx context.Context) (domain.Round, error) {
	rs := f.sorted()
	if len(rs) == 0 {
		return domain.Round{}, domain.ErrNotFound
	}
	return *rs[len(rs)-1], nil
}

func (f *fakeRoundStore) CountUpcoming(ctx context.Context) (int64, error) {
	var n int64
	for _, r := range f.rounds {
		if !r.Resolved && r.ScheduledAt.After(f.now()) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRoundStore) Stats(ctx context.Context, roundID int64) (domain.RoundStats, error) {
	stats := domain.NewRoundStats()
	for _, st := range f.stakes[roundID] {
		cell := stats[st.Currency][st.Outcome]
		cell.Stakers++
		cell.Total += st.Amount
		stats[st.Currency][st.Outcome] = cell
	}
	return stats, nil
}

func (f *fakeRoundStore) Settle(ctx context.Context, roundID int64, compute domain.ComputeFunc) (domain.Settlement, error) {
	if f.settleErr != nil {
		return domain.Settlement{}, f.settleErr
	}
	r, ok := f.rounds[roundID]
	if !ok {
		return domain.Settlement{}, domain.ErrNotFound
	}
	if r.Resolved {
		return domain.Settlement{}, domain.ErrRoundResolved
	}

	refs := make(map[int64]int64)
	for _, st := range f.stakes[roundID] {
		if id, ok := f.refs[st.UserID]; ok {
			refs[st.UserID] = id
		}
	}

	sett, err := compute(*r, f.stakes[roundID], refs)
	if err != nil {
		return domain.Settlement{}, err
	}

	price := sett.ResolutionPrice
	r.ResolutionPrice = &price
	r.Resolved = true
	f.settled = append(f.settled, sett)
	return sett, nil
}

var _ domain.RoundStore = (*fakeRoundStore)(nil)

// fakePriceCache is an in-memory domain.PriceCache.
type fakePriceCache struct {
	prices map[string]float64
	err    error
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{prices: make(map[string]float64)}
}

func (f *fakePriceCache) SetPrice(ctx context.Context, symbol string, price float64) error {
	if f.err != nil {
		return f.err
	}
	f.prices[symbol] = price
	return nil
}

func (f *fakePriceCache) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	p, ok := f.prices[symbol]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p, nil
}

var _ domain.PriceCache = (*fakePriceCache)(nil)

// fakeStakeStore only implements what the rating recompute needs; the
// remaining methods are unused in these tests.
type fakeStakeStore struct {
	scores map[int64]float64
}

func (f *fakeStakeStore) Place(ctx context.Context, p domain.StakePlacement) (domain.Stake, error) {
	return domain.Stake{}, domain.ErrNotFound
}

func (f *fakeStakeStore) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Stake, error) {
	return nil, nil
}

func (f *fakeStakeStore) ListByUserAndRound(ctx context.Context, userID, roundID int64) ([]domain.Stake, error) {
	return nil, nil
}

func (f *fakeStakeStore) WinningScore(ctx context.Context, userID int64) (float64, error) {
	return f.scores[userID], nil
}

var _ domain.StakeStore = (*fakeStakeStore)(nil)

// fakeRatingStore records SetScore calls.
type fakeRatingStore struct {
	scores map[int64]float64
}

func newFakeRatingStore() *fakeRatingStore {
	return &fakeRatingStore{scores: make(map[int64]float64)}
}

func (f *fakeRatingStore) SetScore(ctx context.Context, userID int64, score float64) error {
	f.scores[userID] = score
	return nil
}

func (f *fakeRatingStore) Rank(ctx context.Context, userID int64) (int64, float64, error) {
	score, ok := f.scores[userID]
	if !ok {
		return 0, 0, domain.ErrNotFound
	}
	rank := int64(1)
	for id, s := range f.scores {
		if id != userID && s > score {
			rank++
		}
	}
	return rank, score, nil
}

func (f *fakeRatingStore) Range(ctx context.Context, offset, limit int64) ([]domain.RatingEntry, error) {
	return nil, nil
}

var _ domain.RatingStore = (*fakeRatingStore)(nil)

// fakeLockManager grants or denies every acquisition.
type fakeLockManager struct {
	held     bool
	acquired int
	released int
}

func (f *fakeLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if f.held {
		return nil, domain.ErrLockHeld
	}
	f.acquired++
	return func() { f.released++ }, nil
}

var _ domain.LockManager = (*fakeLockManager)(nil)
