package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hsebcm/calendar-sync/internal/model"
)

// Syncer runs a sync when one is due.
type Syncer interface {
	AutoSync(ctx context.Context) (model.SyncResult, bool, error)
}

// ResultHandler receives every performed sync run. It reports whether the run
// replaced the current dataset.
type ResultHandler interface {
	Apply(result model.SyncResult) bool
}

// ResultHandlerFunc is a function adapter for ResultHandler.
type ResultHandlerFunc func(model.SyncResult) bool

func (f ResultHandlerFunc) Apply(r model.SyncResult) bool {
	return f(r)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // How often to check whether a sync is due (default: 15m)
	Timeout  time.Duration // Bound on one sync run (default: 2m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 15 * time.Minute,
		Timeout:  2 * time.Minute,
	}
}

// Poller periodically asks the syncer to sync and applies the results.
type Poller struct {
	cfg     Config
	syncer  Syncer
	handler ResultHandler
	logger  *slog.Logger

	checks   atomic.Int64
	runs     atomic.Int64
	failures atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, syncer Syncer, handler ResultHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:     cfg,
		syncer:  syncer,
		handler: handler,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("sync poller started",
		"interval", p.cfg.Interval,
		"timeout", p.cfg.Timeout,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("sync poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the number of checks, performed runs and failed runs so far.
func (p *Poller) Stats() (checks, runs, failures int64) {
	return p.checks.Load(), p.runs.Load(), p.failures.Load()
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Check immediately on start.
	p.pollOnce()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

// pollOnce runs one AutoSync and applies a performed result.
func (p *Poller) pollOnce() {
	p.checks.Add(1)

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	result, performed, err := p.syncer.AutoSync(ctx)
	if !performed && err == nil {
		p.logger.Debug("sync not due")
		return
	}
	p.runs.Add(1)

	if err != nil {
		p.failures.Add(1)
		p.logger.Error("sync run failed", "err", err)
	} else if !result.Success {
		p.failures.Add(1)
	}

	if p.handler == nil {
		return
	}
	replaced := p.handler.Apply(result)
	p.logger.Debug("sync result applied",
		"run_id", result.RunID,
		"success", result.Success,
		"replaced", replaced,
	)
}
