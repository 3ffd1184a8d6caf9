package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAcquire_WithinLimitDoesNotWait(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]Limit{"WHO": {MaxRequests: 3, Window: time.Minute}}, WithClock(clock))

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background(), "WHO"))
	}

	assert.Empty(t, clock.sleeps)
	assert.Equal(t, 3, l.InFlight("WHO"))
}

func TestAcquire_OverLimitWaitsForOldestToExpire(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]Limit{"WHO": {MaxRequests: 2, Window: time.Minute}}, WithClock(clock))
	start := clock.Now()

	require.NoError(t, l.Acquire(context.Background(), "WHO"))
	clock.Advance(10 * time.Second)
	require.NoError(t, l.Acquire(context.Background(), "WHO"))

	// maxRequests+1: must wait until the first timestamp ages out.
	require.NoError(t, l.Acquire(context.Background(), "WHO"))

	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 50*time.Second, clock.sleeps[0])
	assert.False(t, clock.Now().Before(start.Add(time.Minute)), "third acquire granted before window elapsed")
	assert.Equal(t, 2, l.InFlight("WHO"))
}

func TestAcquire_SourcesAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]Limit{
		"WHO": {MaxRequests: 1, Window: time.Minute},
		"UN":  {MaxRequests: 1, Window: time.Hour},
	}, WithClock(clock))

	require.NoError(t, l.Acquire(context.Background(), "WHO"))
	require.NoError(t, l.Acquire(context.Background(), "UN"))

	assert.Empty(t, clock.sleeps)
}

func TestAcquire_UnknownSourceIsUnlimited(t *testing.T) {
	clock := newFakeClock()
	l := New(nil, WithClock(clock))

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Acquire(context.Background(), "IRENA"))
	}
	assert.Empty(t, clock.sleeps)
	assert.Zero(t, l.InFlight("IRENA"))
}

func TestAcquire_CancelledWhileWaiting(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]Limit{"UN": {MaxRequests: 1, Window: time.Hour}}, WithClock(clock))

	require.NoError(t, l.Acquire(context.Background(), "UN"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx, "UN")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquire_RealClockDelays(t *testing.T) {
	l := New(map[string]Limit{"ILO": {MaxRequests: 2, Window: 100 * time.Millisecond}})

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background(), "ILO"))
	}

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestAcquire_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	l := New(map[string]Limit{"UAE": {MaxRequests: 5, Window: 200 * time.Millisecond}})

	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(context.Background(), "UAE"))
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, times, 10)
	first := times[0]
	for _, ts := range times {
		if ts.Before(first) {
			first = ts
		}
	}
	early := 0
	for _, ts := range times {
		if ts.Sub(first) < 150*time.Millisecond {
			early++
		}
	}
	assert.LessOrEqual(t, early, 5)
}
