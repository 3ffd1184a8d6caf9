package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hsebcm/calendar-sync/internal/adapter"
	"github.com/hsebcm/calendar-sync/internal/metrics"
	"github.com/hsebcm/calendar-sync/internal/model"
)

const (
	// DefaultInterval is how long a successful sync stays current.
	DefaultInterval = 24 * time.Hour

	// DefaultSourceTimeout bounds one source pipeline.
	DefaultSourceTimeout = 30 * time.Second

	// DefaultRetryBackoff is the initial delay between retries.
	DefaultRetryBackoff = 2 * time.Second
)

var (
	// ErrSyncInProgress is returned when SyncAll is called while a run is in flight.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSystem wraps faults outside the per-source boundary.
	ErrSystem = errors.New("sync system error")
)

// Fetcher retrieves a source payload for one year.
type Fetcher interface {
	FetchYear(ctx context.Context, endpoint string, year int) ([]byte, error)
}

// Source is one configured upstream: where to fetch and how to adapt.
type Source struct {
	ID       string
	Kind     model.SourceKind
	Endpoint string
	Year     int // 0 = year of the run
	Client   Fetcher
	Adapter  adapter.Adapter
	Timeout  time.Duration // 0 = syncer default
}

func (s Source) name() string {
	if s.ID != "" {
		return s.ID
	}
	return string(s.Kind)
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(s *Syncer) {
		s.now = now
	}
}

// WithInterval sets how long a successful sync stays current.
func WithInterval(d time.Duration) Option {
	return func(s *Syncer) {
		s.interval = d
	}
}

// WithSourceTimeout sets the default per-source deadline.
func WithSourceTimeout(d time.Duration) Option {
	return func(s *Syncer) {
		s.sourceTimeout = d
	}
}

// WithRetries sets the retry configuration for retryable fetch errors.
func WithRetries(max int, backoff time.Duration) Option {
	return func(s *Syncer) {
		s.maxRetries = max
		s.retryBackoff = backoff
	}
}

// Syncer runs sync passes over a fixed set of sources.
type Syncer struct {
	sources       []Source
	logger        *slog.Logger
	now           func() time.Time
	interval      time.Duration
	sourceTimeout time.Duration
	maxRetries    int
	retryBackoff  time.Duration

	// afterMerge runs on the merged events before they are returned. Tests
	// use it to inject faults into the merge stage.
	afterMerge func([]model.CanonicalEvent)

	mu    sync.Mutex
	state State
}

// New creates a Syncer over sources. Sources are processed and merged in the
// order given.
func New(sources []Source, opts ...Option) (*Syncer, error) {
	for i, src := range sources {
		if src.Client == nil {
			return nil, fmt.Errorf("source %d (%s): nil client", i, src.name())
		}
		if src.Adapter == nil {
			return nil, fmt.Errorf("source %d (%s): nil adapter", i, src.name())
		}
	}

	s := &Syncer{
		sources:       slices.Clone(sources),
		logger:        slog.Default(),
		now:           time.Now,
		interval:      DefaultInterval,
		sourceTimeout: DefaultSourceTimeout,
		retryBackoff:  DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sources returns the configured source names in processing order.
func (s *Syncer) Sources() []string {
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.name()
	}
	return names
}

// outcome is the result of one source pipeline.
type outcome struct {
	events  []model.CanonicalEvent
	dropped int
	err     error
}

// SyncAll runs every source pipeline concurrently and merges the results.
//
// Per-source failures are reported in the result's Errors and never returned
// as err. err is non-nil only for ErrSyncInProgress or a system-level fault,
// in which case the result has Success=false and no events.
func (s *Syncer) SyncAll(ctx context.Context) (model.SyncResult, error) {
	if !s.begin() {
		metrics.SyncRuns.WithLabelValues("rejected").Inc()
		return model.SyncResult{}, ErrSyncInProgress
	}

	started := time.Now()
	runID := uuid.New()
	logger := s.logger.With("run_id", runID)
	year := s.now().Year()

	logger.Info("sync started", "sources", len(s.sources))

	outcomes := make([]outcome, len(s.sources))
	var g errgroup.Group
	for i, src := range s.sources {
		i, src := i, src
		g.Go(func() error {
			outcomes[i] = s.syncSource(ctx, logger, src, year)
			return nil
		})
	}
	_ = g.Wait()

	result := model.SyncResult{
		RunID:  runID,
		Events: []model.CanonicalEvent{},
		Errors: []model.SourceError{},
	}
	succeeded := 0
	for i, o := range outcomes {
		if o.err != nil {
			name := s.sources[i].name()
			result.Errors = append(result.Errors, model.SourceError{Source: name, Message: o.err.Error()})
			metrics.SourceFailures.WithLabelValues(name).Inc()
			continue
		}
		succeeded++
	}

	events, err := s.merge(outcomes)
	result.SyncedAt = s.now()
	if err != nil {
		logger.Error("sync failed", "err", err)
		s.finish(result)
		metrics.SyncRuns.WithLabelValues("failed").Inc()
		metrics.SyncDuration.Observe(time.Since(started).Seconds())
		return result, err
	}

	result.Success = succeeded > 0
	if result.Success {
		result.Events = events
	}
	s.finish(result)

	outcomeLabel := "success"
	switch {
	case !result.Success:
		outcomeLabel = "failed"
	case result.Degraded():
		outcomeLabel = "degraded"
	}
	metrics.SyncRuns.WithLabelValues(outcomeLabel).Inc()
	metrics.SyncDuration.Observe(time.Since(started).Seconds())
	if result.Success {
		metrics.SyncedEvents.Set(float64(len(result.Events)))
		metrics.LastSuccess.Set(float64(result.SyncedAt.Unix()))
	}

	logger.Info("sync complete",
		"outcome", outcomeLabel,
		"events", len(result.Events),
		"failed_sources", len(result.Errors),
		"duration", time.Since(started),
	)

	return result, nil
}

// syncSource runs fetch and adapt for one source. Every failure, including a
// panic, is returned in the outcome.
func (s *Syncer) syncSource(ctx context.Context, logger *slog.Logger, src Source, year int) (out outcome) {
	start := time.Now()
	name := src.name()

	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: fmt.Errorf("panic: %v", r)}
		}
		if out.err != nil {
			logger.Warn("source failed",
				"source", name,
				"err", out.err,
				"duration", time.Since(start),
			)
		}
	}()

	timeout := src.Timeout
	if timeout <= 0 {
		timeout = s.sourceTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if src.Year > 0 {
		year = src.Year
	}

	payload, err := s.fetchWithRetry(ctx, logger, src, year)
	if err != nil {
		return outcome{err: err}
	}

	events, dropped, err := adapter.AdaptAll(src.Adapter, payload)
	if err != nil {
		return outcome{err: err}
	}

	for _, ne := range dropped {
		logger.Warn("dropped record",
			"source", name,
			"index", ne.Index,
			"reason", ne.Reason,
		)
		metrics.DroppedRecords.WithLabelValues(name).Inc()
	}

	logger.Info("source synced",
		"source", name,
		"events", len(events),
		"dropped", len(dropped),
		"duration", time.Since(start),
	)

	return outcome{events: events, dropped: len(dropped)}
}

// merge collects successful events in source order, drops duplicates by
// (title, start) keeping the first, sorts stably by start and recomputes month.
func (s *Syncer) merge(outcomes []outcome) (events []model.CanonicalEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("%w: merge: %v", ErrSystem, r)
		}
	}()

	seen := make(map[string]struct{})
	events = []model.CanonicalEvent{}
	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		for _, ev := range o.events {
			key := ev.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			events = append(events, ev)
		}
	}

	slices.SortStableFunc(events, func(a, b model.CanonicalEvent) int {
		return a.Start.Compare(b.Start)
	})

	for i := range events {
		if events[i].End.Before(events[i].Start) {
			events[i].End = events[i].Start
		}
		events[i].Month = model.MonthOf(events[i].Start)
	}

	if s.afterMerge != nil {
		s.afterMerge(events)
	}

	return events, nil
}
