package config

import "time"

// Config is the root configuration for the calendar sync service.
type Config struct {
	Sources      []SourceConfig `yaml:"sources"`
	Cache        CacheConfig    `yaml:"cache"`
	Sync         SyncConfig     `yaml:"sync"`
	Server       ServerConfig   `yaml:"server"`
	Logging      LoggingConfig  `yaml:"logging"`
	FallbackPath string         `yaml:"fallback_path"` // JSON event list; embedded dataset if empty
}

// SourceConfig describes one upstream event source.
type SourceConfig struct {
	Kind       string          `yaml:"kind"`       // WHO, UN, ILO, UAE, IRENA
	BaseURL    string          `yaml:"base_url"`   // Request root
	Endpoint   string          `yaml:"endpoint"`   // Path appended to base_url
	Credential string          `yaml:"credential"` // Optional bearer token
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
	Timeout    time.Duration   `yaml:"timeout"` // Per-fetch deadline, overrides sync.source_timeout
	Disabled   bool            `yaml:"disabled"`
}

// RateLimitConfig bounds requests to one source within a sliding window.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// CacheConfig holds the payload cache settings.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	Backend    string        `yaml:"backend"`     // memory, sqlite, postgres
	SQLitePath string        `yaml:"sqlite_path"` // Used when backend is sqlite
	Postgres   DBConfig      `yaml:"postgres"`    // Used when backend is postgres
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SyncConfig holds orchestrator and scheduling settings.
type SyncConfig struct {
	Interval      time.Duration `yaml:"interval"`       // Minimum age of last success before re-sync
	CheckInterval time.Duration `yaml:"check_interval"` // How often the poller asks whether a sync is due
	Year          int           `yaml:"year"`           // Calendar year to request; 0 = current year
	SourceTimeout time.Duration `yaml:"source_timeout"`
	MaxRetries    int           `yaml:"max_retries"` // Orchestrator-level retries for retryable fetch errors
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
}

// ServerConfig holds the feed/health/metrics HTTP server settings.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Enabled returns the sources that are not disabled, preserving order.
func (c *Config) Enabled() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}
