package dataset

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hsebcm/calendar-sync/internal/model"
)

// Snapshot is the dataset handed to the presentation layer.
type Snapshot struct {
	Events   []model.CanonicalEvent `json:"events"`
	Errors   []model.SourceError    `json:"errors"`
	SyncedAt time.Time              `json:"synced_at"`
	RunID    uuid.UUID              `json:"run_id"`
	Fallback bool                   `json:"fallback"`
}

// Degraded returns the number of sources that failed in the run that
// produced this snapshot.
func (s Snapshot) Degraded() int {
	return len(s.Errors)
}

// RunStatus describes the most recent sync run applied to the holder,
// whether or not it replaced the dataset.
type RunStatus struct {
	RunID         uuid.UUID `json:"run_id"`
	At            time.Time `json:"at"`
	Success       bool      `json:"success"`
	FailedSources int       `json:"failed_sources"`
}

// subscriberBuffer is the number of pending snapshots per subscriber.
const subscriberBuffer = 4

// Holder owns the current dataset and notifies subscribers when it changes.
type Holder struct {
	logger *slog.Logger

	mu      sync.RWMutex
	current Snapshot
	lastRun RunStatus
	subs    map[chan Snapshot]struct{}
}

// NewHolder creates a Holder seeded with fallback events.
func NewHolder(fallback []model.CanonicalEvent, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	events := slices.Clone(fallback)
	if events == nil {
		events = []model.CanonicalEvent{}
	}
	return &Holder{
		logger: logger,
		current: Snapshot{
			Events:   events,
			Errors:   []model.SourceError{},
			Fallback: true,
		},
		subs: make(map[chan Snapshot]struct{}),
	}
}

// Current returns a copy of the current dataset.
func (h *Holder) Current() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.clone()
}

// LastRun returns the status of the most recently applied run. The zero value
// means no run has been applied.
func (h *Holder) LastRun() RunStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastRun
}

// Apply replaces the dataset with result if the run succeeded. It reports
// whether the dataset was replaced. A failed run only updates LastRun.
func (h *Holder) Apply(result model.SyncResult) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastRun = RunStatus{
		RunID:         result.RunID,
		At:            result.SyncedAt,
		Success:       result.Success,
		FailedSources: len(result.Errors),
	}

	if !result.Success {
		h.logger.Warn("sync failed, keeping current dataset",
			"run_id", result.RunID,
			"failed_sources", len(result.Errors),
			"events", len(h.current.Events),
			"fallback", h.current.Fallback,
		)
		return false
	}

	h.current = Snapshot{
		Events:   slices.Clone(result.Events),
		Errors:   slices.Clone(result.Errors),
		SyncedAt: result.SyncedAt,
		RunID:    result.RunID,
	}
	if h.current.Errors == nil {
		h.current.Errors = []model.SourceError{}
	}
	if h.current.Events == nil {
		h.current.Events = []model.CanonicalEvent{}
	}

	if n := len(result.Errors); n > 0 {
		h.logger.Warn("dataset replaced from degraded sync",
			"run_id", result.RunID,
			"events", len(result.Events),
			"failed_sources", n,
		)
	} else {
		h.logger.Info("dataset replaced",
			"run_id", result.RunID,
			"events", len(result.Events),
		)
	}

	for ch := range h.subs {
		notify(ch, h.current.clone())
	}
	return true
}

// Subscribe returns a channel that receives every replaced dataset, and a
// function that unsubscribes and closes the channel. Slow subscribers lose
// the oldest pending snapshot.
func (h *Holder) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// notify sends s without blocking, dropping the oldest pending snapshot when
// the channel is full. Callers hold h.mu.
func notify(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
	default:
		select {
		case <-ch:
			ch <- s
		default:
		}
	}
}

func (s Snapshot) clone() Snapshot {
	s.Events = slices.Clone(s.Events)
	s.Errors = slices.Clone(s.Errors)
	return s
}
