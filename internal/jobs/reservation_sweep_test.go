package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExpirer struct {
	mu      sync.Mutex
	expiry  map[string]time.Time
	expired []string
	err     error
	calls   int
}

func (s *stubExpirer) BulkExpireReservations(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	var released int64
	for number, until := range s.expiry {
		if until.Before(now) {
			s.expired = append(s.expired, number)
			delete(s.expiry, number)
			released++
		}
	}
	return released, nil
}

func (s *stubExpirer) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.expired...), s.calls
}

type stubInvalidator struct {
	mu    sync.Mutex
	count int
}

func (s *stubInvalidator) InvalidateTicketList(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

func (s *stubInvalidator) invalidations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition not met within timeout")
}

func TestSweepReleasesOnlyExpiredHolds(t *testing.T) {
	store := &stubExpirer{expiry: map[string]time.Time{
		"05": time.Now().Add(-time.Minute),
		"06": time.Now().Add(time.Hour),
	}}
	cache := &stubInvalidator{}

	sweeper := NewReservationSweeper(store, cache, time.Hour)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	waitFor(t, 2*time.Second, func() bool {
		expired, _ := store.snapshot()
		return len(expired) == 1
	})

	expired, _ := store.snapshot()
	assert.Equal(t, []string{"05"}, expired)
	assert.Equal(t, 1, cache.invalidations())

	store.mu.Lock()
	_, stillHeld := store.expiry["06"]
	store.mu.Unlock()
	assert.True(t, stillHeld, "future hold must survive the sweep")
}

func TestSweepRunsOnInterval(t *testing.T) {
	store := &stubExpirer{expiry: map[string]time.Time{}}

	sweeper := NewReservationSweeper(store, nil, 20*time.Millisecond)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	waitFor(t, 2*time.Second, func() bool {
		_, calls := store.snapshot()
		return calls >= 3
	})
}

func TestSweepSkipsCacheWhenNothingReleased(t *testing.T) {
	store := &stubExpirer{expiry: map[string]time.Time{
		"06": time.Now().Add(time.Hour),
	}}
	cache := &stubInvalidator{}

	sweeper := NewReservationSweeper(store, cache, 20*time.Millisecond)
	sweeper.Start(context.Background())

	waitFor(t, 2*time.Second, func() bool {
		_, calls := store.snapshot()
		return calls >= 2
	})
	sweeper.Stop()

	assert.Zero(t, cache.invalidations())
}

func TestSweepSurvivesStoreErrors(t *testing.T) {
	store := &stubExpirer{err: assert.AnError}

	sweeper := NewReservationSweeper(store, nil, 20*time.Millisecond)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	waitFor(t, 2*time.Second, func() bool {
		_, calls := store.snapshot()
		return calls >= 3
	})
}

func TestStopHaltsTheLoop(t *testing.T) {
	store := &stubExpirer{expiry: map[string]time.Time{}}

	sweeper := NewReservationSweeper(store, nil, 10*time.Millisecond)
	sweeper.Start(context.Background())

	waitFor(t, 2*time.Second, func() bool {
		_, calls := store.snapshot()
		return calls >= 1
	})
	sweeper.Stop()

	_, callsAtStop := store.snapshot()
	time.Sleep(80 * time.Millisecond)
	_, callsAfter := store.snapshot()
	assert.LessOrEqual(t, callsAfter, callsAtStop+1, "loop must stop ticking after Stop")
}
