package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hsebcm/calendar-sync/internal/adapter"
	"github.com/hsebcm/calendar-sync/internal/api"
	"github.com/hsebcm/calendar-sync/internal/cache"
	"github.com/hsebcm/calendar-sync/internal/config"
	"github.com/hsebcm/calendar-sync/internal/database"
	"github.com/hsebcm/calendar-sync/internal/feed"
	"github.com/hsebcm/calendar-sync/internal/model"
	"github.com/hsebcm/calendar-sync/internal/ratelimit"
	"github.com/hsebcm/calendar-sync/internal/syncer"
	"github.com/hsebcm/calendar-sync/internal/version"
)

// app is the wired set of components shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *cache.Store
	checks map[string]feed.CheckFunc

	closers []func()
}

// loadConfig reads and validates the config file, or returns the defaults
// when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validate default config: %w", err)
		}
		return cfg, nil
	}
	return config.LoadAndValidate(path)
}

// newLogger builds the slog logger selected by the logging config. verbose
// forces debug level.
func newLogger(cfg config.LoggingConfig, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// newApp loads config, sets up logging and opens the cache.
func newApp(ctx context.Context, opts *RootOptions, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := newLogger(cfg.Logging, opts.Verbose, logOut)
	slog.SetDefault(logger)

	logger.Debug("configuration loaded",
		"version", version.Version,
		"config", opts.ConfigPath,
		"sources", len(cfg.Enabled()),
		"cache_backend", cfg.Cache.Backend,
	)

	a := &app{
		cfg:    cfg,
		logger: logger,
		checks: make(map[string]feed.CheckFunc),
	}
	if err := a.openCache(ctx); err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open cache", err)
	}
	return a, nil
}

// openCache creates the cache store with the configured durable tier.
func (a *app) openCache(ctx context.Context) error {
	opts := []cache.Option{cache.WithLogger(a.logger)}

	switch a.cfg.Cache.Backend {
	case "sqlite":
		db, err := database.OpenSQLite(a.cfg.Cache.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { db.Close() })
		durable, err := cache.NewSQLiteDurable(ctx, db)
		if err != nil {
			return err
		}
		a.checks["cache_sqlite"] = db.PingContext
		opts = append(opts, cache.WithDurable(durable))
		a.logger.Debug("sqlite cache tier ready", "path", a.cfg.Cache.SQLitePath)

	case "postgres":
		pg := a.cfg.Cache.Postgres
		a.logger.Info("connecting to cache database",
			"host", pg.Host,
			"port", pg.Port,
			"database", pg.Name,
		)
		pool, err := database.Connect(ctx, pg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		durable, err := cache.NewPostgresDurable(ctx, pool)
		if err != nil {
			return err
		}
		a.checks["cache_postgres"] = pool.Ping
		opts = append(opts, cache.WithDurable(durable))
		a.logger.Info("cache database connected")
	}

	a.store = cache.New(opts...)
	return nil
}

// buildSyncer wires limiter, clients and adapters for every enabled source.
func (a *app) buildSyncer() (*syncer.Syncer, error) {
	enabled := a.cfg.Enabled()

	limits := make(map[string]ratelimit.Limit, len(enabled))
	for _, sc := range enabled {
		if sc.RateLimit.MaxRequests > 0 {
			limits[sc.Kind] = ratelimit.Limit{
				MaxRequests: sc.RateLimit.MaxRequests,
				Window:      sc.RateLimit.Window,
			}
		}
	}
	limiter := ratelimit.New(limits, ratelimit.WithLogger(a.logger))

	sources := make([]syncer.Source, 0, len(enabled))
	for _, sc := range enabled {
		kind, ok := model.ParseSourceKind(sc.Kind)
		if !ok {
			return nil, fmt.Errorf("unsupported source %q", sc.Kind)
		}
		ad, err := adapter.For(kind)
		if err != nil {
			return nil, err
		}

		timeout := sc.Timeout
		if timeout <= 0 {
			timeout = a.cfg.Sync.SourceTimeout
		}
		client := api.NewClient(string(kind), sc.BaseURL, sc.Credential,
			api.WithLogger(a.logger),
			api.WithTimeout(timeout),
			api.WithCache(a.store),
			api.WithLimiter(limiter),
			api.WithCacheTTL(a.cfg.Cache.TTL),
			api.WithUserAgent(version.UserAgent()),
		)

		sources = append(sources, syncer.Source{
			ID:       string(kind),
			Kind:     kind,
			Endpoint: sc.Endpoint,
			Year:     a.cfg.Sync.Year,
			Client:   client,
			Adapter:  ad,
			Timeout:  sc.Timeout,
		})
	}

	return syncer.New(sources,
		syncer.WithLogger(a.logger),
		syncer.WithInterval(a.cfg.Sync.Interval),
		syncer.WithSourceTimeout(a.cfg.Sync.SourceTimeout),
		syncer.WithRetries(a.cfg.Sync.MaxRetries, a.cfg.Sync.RetryBackoff),
	)
}

// Close releases cache connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
