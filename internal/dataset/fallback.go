package dataset

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/hsebcm/calendar-sync/internal/model"
)

//go:embed fallback.json
var fallbackJSON []byte

// DefaultFallback returns the built-in fallback events.
func DefaultFallback() ([]model.CanonicalEvent, error) {
	return ParseFallback(fallbackJSON)
}

// LoadFallback reads fallback events from a JSON file.
func LoadFallback(path string) ([]model.CanonicalEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback file: %w", err)
	}
	events, err := ParseFallback(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

// ParseFallback decodes a JSON array of events, enforcing the same invariants
// as a sync run: non-empty title, End >= Start, Month derived from Start, and
// ascending Start order.
func ParseFallback(data []byte) ([]model.CanonicalEvent, error) {
	var events []model.CanonicalEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse fallback events: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("fallback dataset is empty")
	}

	for i := range events {
		ev := &events[i]
		if ev.Title == "" {
			return nil, fmt.Errorf("fallback event %d: missing title", i)
		}
		if ev.Start.IsZero() {
			return nil, fmt.Errorf("fallback event %d (%s): missing start", i, ev.Title)
		}
		ev.Start = model.Date(ev.Start)
		ev.End = model.Date(ev.End)
		if ev.End.Before(ev.Start) {
			ev.End = ev.Start
		}
		ev.Month = model.MonthOf(ev.Start)
	}

	slices.SortStableFunc(events, func(a, b model.CanonicalEvent) int {
		return a.Start.Compare(b.Start)
	})
	return events, nil
}
