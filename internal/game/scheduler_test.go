package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceduel/priceduel/internal/domain"
)

const testSymbol = "BTCUSDT"

func newTestScheduler(t *testing.T, now time.Time) (*Scheduler, *fakeRoundStore, *fakePriceCache) {
	t.Helper()

	nowFn := func() time.Time { return now }
	rounds := newFakeRoundStore(nowFn)
	prices := newFakePriceCache()

	rating := NewRating(&fakeStakeStore{scores: map[int64]float64{}}, newFakeRatingStore(), testLogger())
	settler := NewSettler(rounds, prices, rating, nil, nil, testSymbol, testLogger())

	s := NewScheduler(rounds, prices, settler, testSymbol, 10*time.Minute, testLogger())
	s.now = nowFn
	return s, rounds, prices
}

func TestSchedulerStep_SeedsEmptyQueue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 4, 37, 0, time.UTC)
	s, rounds, prices := newTestScheduler(t, now)
	require.NoError(t, prices.SetPrice(context.Background(), testSymbol, 109324.5561))

	require.NoError(t, s.Step(context.Background()))

	require.Len(t, rounds.rounds, 1)
	r := rounds.rounds[1]
	// Scheduled one cadence after the whole minute.
	assert.Equal(t, time.Date(2026, 3, 1, 12, 14, 0, 0, time.UTC), r.ScheduledAt)
	assert.Equal(t, 109324.55, r.OpeningPrice)
	assert.False(t, r.Resolved)
}

func TestSchedulerStep_SeedsWithZeroOpeningWhenNoPriceYet(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, rounds, _ := newTestScheduler(t, now)

	require.NoError(t, s.Step(context.Background()))

	require.Len(t, rounds.rounds, 1)
	assert.Equal(t, 0.0, rounds.rounds[1].OpeningPrice)
}

func TestSchedulerStep_SeedsFromLastSettledRoundWhenCacheEmpty(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, rounds, _ := newTestScheduler(t, now)

	// Every round is settled and the cache has never been filled, e.g. a
	// restart before the first feed refresh. The new round opens at the last
	// settled round's resolution price.
	resolution := 47000.0
	rounds.add(domain.Round{
		ScheduledAt:     now.Add(-20 * time.Minute),
		OpeningPrice:    46500,
		ResolutionPrice: &resolution,
		Resolved:        true,
	})

	require.NoError(t, s.Step(context.Background()))

	require.Len(t, rounds.createdIDs, 1)
	assert.Equal(t, 47000.0, rounds.rounds[rounds.createdIDs[0]].OpeningPrice)
}

func TestSchedulerStep_KeepsQueueDepth(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, rounds, prices := newTestScheduler(t, now)
	require.NoError(t, prices.SetPrice(context.Background(), testSymbol, 50000))

	// One round due right now, none upcoming.
	rounds.add(domain.Round{ScheduledAt: now, OpeningPrice: 50000})

	require.NoError(t, s.Step(context.Background()))

	// A second round was queued one cadence out, and the due round settled.
	var upcoming int
	for _, r := range rounds.rounds {
		if r.ScheduledAt.After(now) {
			upcoming++
		}
	}
	assert.Equal(t, 1, upcoming)
	require.Len(t, rounds.settled, 1)
	assert.True(t, rounds.rounds[1].Resolved)
}

func TestSchedulerStep_EnoughUpcomingCreatesNothing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, rounds, prices := newTestScheduler(t, now)
	require.NoError(t, prices.SetPrice(context.Background(), testSymbol, 50000))

	rounds.add(domain.Round{ScheduledAt: now, OpeningPrice: 50000})
	rounds.add(domain.Round{ScheduledAt: now.Add(10 * time.Minute), OpeningPrice: 50000})
	rounds.add(domain.Round{ScheduledAt: now.Add(20 * time.Minute), OpeningPrice: 50000})

	require.NoError(t, s.Step(context.Background()))

	assert.Empty(t, rounds.createdIDs)
	require.Len(t, rounds.settled, 1)
}

func TestSchedulerStep_OverdueRoundGetsReplacementAndSettles(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	s, rounds, _ := newTestScheduler(t, now)

	// A round 30 minutes overdue, e.g. after a crash. The cache is empty, so
	// the replacement opens at the overdue round's own opening price.
	overdue := rounds.add(domain.Round{
		ScheduledAt:  now.Add(-30 * time.Minute),
		OpeningPrice: 48000,
	})

	require.NoError(t, s.Step(context.Background()))

	// Replacement scheduled one cadence after the overdue slot.
	require.Len(t, rounds.createdIDs, 1)
	repl := rounds.rounds[rounds.createdIDs[0]]
	assert.Equal(t, overdue.ScheduledAt.Add(10*time.Minute), repl.ScheduledAt)
	assert.Equal(t, 48000.0, repl.OpeningPrice)

	// The overdue round still settled, against its opening price (a tie).
	require.Len(t, rounds.settled, 1)
	assert.True(t, rounds.rounds[overdue.ID].Resolved)
	assert.Equal(t, 48000.0, *rounds.rounds[overdue.ID].ResolutionPrice)
}

func TestSchedulerStep_DuplicateScheduleTolerated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, rounds, prices := newTestScheduler(t, now)
	require.NoError(t, prices.SetPrice(context.Background(), testSymbol, 50000))

	// The slot the scheduler would create already exists.
	rounds.add(domain.Round{ScheduledAt: now, OpeningPrice: 50000})
	rounds.add(domain.Round{ScheduledAt: now.Add(10 * time.Minute), OpeningPrice: 50000})

	require.NoError(t, s.Step(context.Background()))
	assert.Len(t, rounds.rounds, 2)
}

func TestSchedulerRun_StopsOnContextCancel(t *testing.T) {
	now := time.Now().UTC()
	s, rounds, prices := newTestScheduler(t, now)
	require.NoError(t, prices.SetPrice(context.Background(), testSymbol, 50000))
	rounds.add(domain.Round{ScheduledAt: now.Add(time.Hour), OpeningPrice: 50000})
	rounds.add(domain.Round{ScheduledAt: now.Add(2 * time.Hour), OpeningPrice: 50000})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
