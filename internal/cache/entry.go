package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one cached payload.
type Entry struct {
	Key       string
	Payload   []byte
	FetchedAt time.Time
	TTL       time.Duration
}

// Valid reports whether the entry is still fresh at now.
func (e Entry) Valid(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

// Durable is the slower persistent tier.
type Durable interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, e Entry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// record is the on-disk envelope for a durable entry.
type record struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // ms since epoch
	TTL       int64           `json:"ttl"`       // ms
}

func encodeRecord(e Entry) ([]byte, error) {
	if !json.Valid(e.Payload) {
		return nil, fmt.Errorf("encode cache record %q: payload is not JSON", e.Key)
	}
	return json.Marshal(record{
		Data:      e.Payload,
		Timestamp: e.FetchedAt.UnixMilli(),
		TTL:       e.TTL.Milliseconds(),
	})
}

func decodeRecord(key string, raw []byte) (Entry, error) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Entry{}, fmt.Errorf("decode cache record %q: %w", key, err)
	}
	return Entry{
		Key:       key,
		Payload:   []byte(r.Data),
		FetchedAt: time.UnixMilli(r.Timestamp),
		TTL:       time.Duration(r.TTL) * time.Millisecond,
	}, nil
}
