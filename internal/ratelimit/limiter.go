package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hsebcm/calendar-sync/internal/metrics"
)

// Limit is the request budget for one source.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Limiter) {
		l.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// Limiter tracks a sliding window of request timestamps per source.
type Limiter struct {
	limits map[string]Limit
	clock  Clock
	logger *slog.Logger

	mu      sync.Mutex
	windows map[string][]time.Time
}

// New creates a Limiter. Sources missing from limits are not throttled.
func New(limits map[string]Limit, opts ...Option) *Limiter {
	l := &Limiter{
		limits:  make(map[string]Limit, len(limits)),
		clock:   realClock{},
		logger:  slog.Default(),
		windows: make(map[string][]time.Time),
	}
	for id, lim := range limits {
		l.limits[id] = lim
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured limit for a source.
func (l *Limiter) Limit(sourceID string) (Limit, bool) {
	lim, ok := l.limits[sourceID]
	return lim, ok
}

// Acquire waits until a request for sourceID fits in its window and records
// it. It only fails if ctx is done while waiting.
func (l *Limiter) Acquire(ctx context.Context, sourceID string) error {
	lim, ok := l.limits[sourceID]
	if !ok || lim.MaxRequests <= 0 || lim.Window <= 0 {
		return nil
	}

	for {
		wait := l.tryAcquire(sourceID, lim)
		if wait <= 0 {
			return nil
		}

		l.logger.Debug("rate limited, waiting",
			"source", sourceID,
			"wait", wait,
		)
		metrics.RateLimitWait.WithLabelValues(sourceID).Add(wait.Seconds())

		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// tryAcquire records a request and returns 0, or returns how long to wait
// before the oldest timestamp leaves the window.
func (l *Limiter) tryAcquire(sourceID string, lim Limit) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	cutoff := now.Add(-lim.Window)

	ts := l.windows[sourceID]
	keep := 0
	for keep < len(ts) && !ts[keep].After(cutoff) {
		keep++
	}
	ts = ts[keep:]

	if len(ts) < lim.MaxRequests {
		l.windows[sourceID] = append(ts, now)
		return 0
	}

	l.windows[sourceID] = ts
	wait := ts[0].Add(lim.Window).Sub(now)
	if wait <= 0 {
		// Oldest expires exactly now; re-check immediately.
		wait = time.Nanosecond
	}
	return wait
}

// InFlight returns how many requests are currently counted against sourceID.
func (l *Limiter) InFlight(sourceID string) int {
	lim, ok := l.limits[sourceID]
	if !ok {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-lim.Window)
	n := 0
	for _, t := range l.windows[sourceID] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
