package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapDurable is an in-memory Durable that can be told to fail.
type mapDurable struct {
	mu        sync.Mutex
	entries   map[string]Entry
	saveErr   error
	loads     int
	deletes   []string
	clearCall int
}

func newMapDurable() *mapDurable {
	return &mapDurable{entries: make(map[string]Entry)}
}

func (d *mapDurable) Load(_ context.Context, key string) (Entry, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loads++
	e, ok := d.entries[key]
	return e, ok, nil
}

func (d *mapDurable) Save(_ context.Context, e Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saveErr != nil {
		return d.saveErr
	}
	d.entries[e.Key] = e
	return nil
}

func (d *mapDurable) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deletes = append(d.deletes, key)
	delete(d.entries, key)
	return nil
}

func (d *mapDurable) Clear(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearCall++
	d.entries = make(map[string]Entry)
	return nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *manualClock {
	return &manualClock{now: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func TestStore_MemoryHitWithinTTL(t *testing.T) {
	clock := newClock()
	s := New(WithNow(clock.Now))
	ctx := context.Background()

	s.Set(ctx, "k", []byte(`[1]`), time.Hour)
	clock.Advance(59 * time.Minute)

	got, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, `[1]`, string(got))
}

func TestStore_ExpiredEntryIsAbsentAndEvicted(t *testing.T) {
	clock := newClock()
	s := New(WithNow(clock.Now))
	ctx := context.Background()

	s.Set(ctx, "k", []byte(`[1]`), time.Hour)
	clock.Advance(time.Hour)

	_, ok := s.Get(ctx, "k")
	assert.False(t, ok, "entry at exactly TTL must be expired")
	assert.Zero(t, s.Len(), "expired entry should be evicted on read")
}

func TestStore_ReturnedPayloadIsACopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	in := []byte(`{"a":1}`)
	s.Set(ctx, "k", in, time.Hour)
	in[0] = 'X'

	got, ok := s.Get(ctx, "k")
	require.True(t, ok)
	got[1] = 'Y'

	again, _ := s.Get(ctx, "k")
	assert.Equal(t, `{"a":1}`, string(again))
}

func TestStore_DurableHitIsPromoted(t *testing.T) {
	clock := newClock()
	d := newMapDurable()
	d.entries["k"] = Entry{Key: "k", Payload: []byte(`[2]`), FetchedAt: clock.Now(), TTL: time.Hour}

	s := New(WithDurable(d), WithNow(clock.Now))
	ctx := context.Background()

	got, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, `[2]`, string(got))
	assert.Equal(t, 1, s.Len())

	// Second read is served from memory.
	_, ok = s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 1, d.loads)
}

func TestStore_ExpiredDurableEntryIsDeleted(t *testing.T) {
	clock := newClock()
	d := newMapDurable()
	d.entries["k"] = Entry{Key: "k", Payload: []byte(`[]`), FetchedAt: clock.Now().Add(-2 * time.Hour), TTL: time.Hour}

	s := New(WithDurable(d), WithNow(clock.Now))

	_, ok := s.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Equal(t, []string{"k"}, d.deletes)
	assert.Zero(t, s.Len())
}

func TestStore_DurableWriteFailureIsSwallowed(t *testing.T) {
	d := newMapDurable()
	d.saveErr = errors.New("quota exceeded")
	s := New(WithDurable(d))
	ctx := context.Background()

	s.Set(ctx, "k", []byte(`"v"`), time.Hour)

	got, ok := s.Get(ctx, "k")
	require.True(t, ok, "memory tier must still serve the value")
	assert.Equal(t, `"v"`, string(got))
	assert.Empty(t, d.entries)
}

func TestStore_SetWritesBothTiers(t *testing.T) {
	d := newMapDurable()
	s := New(WithDurable(d))

	s.Set(context.Background(), "k", []byte(`[]`), time.Minute)

	e, ok := d.entries["k"]
	require.True(t, ok)
	assert.Equal(t, time.Minute, e.TTL)
}

func TestStore_ClearEmptiesBothTiers(t *testing.T) {
	d := newMapDurable()
	s := New(WithDurable(d))
	ctx := context.Background()

	s.Set(ctx, "a", []byte(`1`), time.Hour)
	s.Set(ctx, "b", []byte(`2`), time.Hour)

	require.NoError(t, s.Clear(ctx))

	assert.Zero(t, s.Len())
	assert.Empty(t, d.entries)
	assert.Equal(t, 1, d.clearCall)
	_, ok := s.Get(ctx, "a")
	assert.False(t, ok)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(WithDurable(newMapDurable()))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []string{"who", "un", "ilo", "uae", "irena"}[i%5]
			s.Set(ctx, key, []byte(`[]`), time.Hour)
			s.Get(ctx, key)
			if i == 10 {
				assert.NoError(t, s.Clear(ctx))
			}
		}(i)
	}
	wg.Wait()
}

func TestRecordRoundTrip(t *testing.T) {
	at := time.UnixMilli(1735689600123)
	e := Entry{Key: "k", Payload: []byte(`[{"title":"x"}]`), FetchedAt: at, TTL: 90 * time.Minute}

	raw, err := encodeRecord(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"title":"x"}],"timestamp":1735689600123,"ttl":5400000}`, string(raw))

	got, err := decodeRecord("k", raw)
	require.NoError(t, err)
	assert.Equal(t, e.Payload, got.Payload)
	assert.True(t, got.FetchedAt.Equal(at))
	assert.Equal(t, e.TTL, got.TTL)

	_, err = encodeRecord(Entry{Key: "bad", Payload: []byte(`not json`)})
	assert.Error(t, err)
}
