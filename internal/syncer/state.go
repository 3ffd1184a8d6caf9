package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/hsebcm/calendar-sync/internal/model"
)

// State is the orchestration state owned by a Syncer.
type State struct {
	LastSuccessAt time.Time `json:"last_success_at"` // zero = never
	Syncing       bool      `json:"syncing"`
}

// State returns a copy of the current state.
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Restore seeds the last success time, e.g. from persisted state. It does not
// change the in-flight flag.
func (s *Syncer) Restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastSuccessAt = st.LastSuccessAt
}

// ShouldSync reports whether a sync is due at now: no successful sync yet, or
// the last one is older than the interval.
func (s *Syncer) ShouldSync(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LastSuccessAt.IsZero() {
		return true
	}
	return now.Sub(s.state.LastSuccessAt) > s.interval
}

// AutoSync runs SyncAll when a sync is due. performed is false when no sync
// was attempted, which callers must distinguish from a failed run.
func (s *Syncer) AutoSync(ctx context.Context) (result model.SyncResult, performed bool, err error) {
	if !s.ShouldSync(s.now()) {
		return model.SyncResult{}, false, nil
	}
	result, err = s.SyncAll(ctx)
	if errors.Is(err, ErrSyncInProgress) {
		return model.SyncResult{}, false, nil
	}
	return result, true, err
}

// begin moves idle -> syncing. It returns false if a run is already in flight.
func (s *Syncer) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Syncing {
		return false
	}
	s.state.Syncing = true
	return true
}

// finish moves syncing -> idle and records a successful run.
func (s *Syncer) finish(result model.SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Syncing = false
	if result.Success {
		s.state.LastSuccessAt = result.SyncedAt
	}
}
