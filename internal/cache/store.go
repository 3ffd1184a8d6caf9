package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hsebcm/calendar-sync/internal/metrics"
)

// Option configures a Store.
type Option func(*Store)

// WithDurable attaches a persistent tier. Without one the store is memory only.
func WithDurable(d Durable) Option {
	return func(s *Store) {
		s.durable = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is a keyed TTL cache with a memory tier in front of an optional
// durable tier.
//
// Readers hold the read lock across both tiers and writers (Set, Clear) hold
// the write lock across both, so no reader sees a key half-cleared.
type Store struct {
	durable Durable
	logger  *slog.Logger
	now     func() time.Time

	mu  sync.RWMutex
	mem map[string]Entry
	gen uint64 // bumped by Clear; stale promotions are discarded
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{
		logger: slog.Default(),
		now:    time.Now,
		mem:    make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached payload for key if it is still within its TTL.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	now := s.now()

	s.mu.RLock()
	gen := s.gen
	memEntry, inMem := s.mem[key]
	if inMem && memEntry.Valid(now) {
		s.mu.RUnlock()
		metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
		return clone(memEntry.Payload), true
	}

	var (
		durEntry Entry
		inDur    bool
		err      error
	)
	if s.durable != nil {
		durEntry, inDur, err = s.durable.Load(ctx, key)
	}
	s.mu.RUnlock()

	if inMem {
		s.evictMemory(gen, key, memEntry)
	}
	if s.durable == nil {
		metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()
		return nil, false
	}
	if err != nil {
		s.logger.Warn("durable cache read failed", "key", key, "err", err)
		metrics.CacheLookups.WithLabelValues("durable", "error").Inc()
		return nil, false
	}
	if !inDur {
		metrics.CacheLookups.WithLabelValues("durable", "miss").Inc()
		return nil, false
	}
	if !durEntry.Valid(now) {
		s.evictDurable(ctx, gen, key)
		metrics.CacheLookups.WithLabelValues("durable", "expired").Inc()
		return nil, false
	}

	s.promote(gen, durEntry)
	metrics.CacheLookups.WithLabelValues("durable", "hit").Inc()
	return clone(durEntry.Payload), true
}

// Set stores payload under key in both tiers. Durable failures are logged
// and otherwise ignored.
func (s *Store) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	e := Entry{
		Key:       key,
		Payload:   clone(payload),
		FetchedAt: s.now(),
		TTL:       ttl,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem[key] = e
	if s.durable == nil {
		return
	}
	if err := s.durable.Save(ctx, e); err != nil {
		metrics.CacheWriteErrors.Inc()
		s.logger.Warn("durable cache write failed", "key", key, "err", err)
	}
}

// Clear empties both tiers.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem = make(map[string]Entry)
	s.gen++
	if s.durable == nil {
		return nil
	}
	return s.durable.Clear(ctx)
}

// Len returns the number of entries in the memory tier, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mem)
}

func (s *Store) evictMemory(gen uint64, key string, seen Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	// Only drop the entry we judged expired, not a fresh one written since.
	if cur, ok := s.mem[key]; ok && cur.FetchedAt.Equal(seen.FetchedAt) {
		delete(s.mem, key)
	}
}

func (s *Store) evictDurable(ctx context.Context, gen uint64, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	if cur, ok := s.mem[key]; ok && cur.Valid(s.now()) {
		return
	}
	if err := s.durable.Delete(ctx, key); err != nil {
		s.logger.Warn("durable cache evict failed", "key", key, "err", err)
	}
}

func (s *Store) promote(gen uint64, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	if cur, ok := s.mem[e.Key]; ok && cur.FetchedAt.After(e.FetchedAt) {
		return
	}
	s.mem[e.Key] = e
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
