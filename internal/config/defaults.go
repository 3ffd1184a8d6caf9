package config

import (
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultCacheTTL          = time.Hour
	DefaultCacheBackend      = "memory"
	DefaultSQLitePath        = "hsebcm-cache.db"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultSyncInterval      = 24 * time.Hour
	DefaultCheckInterval     = 15 * time.Minute
	DefaultSourceTimeout     = 30 * time.Second
	DefaultRetryBackoff      = 2 * time.Second
	DefaultServerPort        = 8080
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultSourceEndpoint    = "/events"
	DefaultSourceMaxRequests = 60
	DefaultSourceWindow      = time.Minute
)

// sourceDefaults are the per-organization request roots and limits.
var sourceDefaults = map[string]SourceConfig{
	"WHO": {
		BaseURL:   "https://www.who.int/api/hse",
		Endpoint:  "/observances",
		RateLimit: RateLimitConfig{MaxRequests: 60, Window: time.Minute},
	},
	"UN": {
		BaseURL:   "https://www.un.org/api/observances",
		Endpoint:  "/international-days",
		RateLimit: RateLimitConfig{MaxRequests: 200, Window: time.Hour},
	},
	"ILO": {
		BaseURL:   "https://www.ilo.org/api/calendar",
		Endpoint:  "/events",
		RateLimit: RateLimitConfig{MaxRequests: 60, Window: time.Minute},
	},
	"UAE": {
		BaseURL:   "https://api.u.ae/calendar",
		Endpoint:  "/national-days",
		RateLimit: RateLimitConfig{MaxRequests: 100, Window: time.Hour},
	},
	"IRENA": {
		BaseURL:   "https://www.irena.org/api",
		Endpoint:  "/events",
		RateLimit: RateLimitConfig{MaxRequests: 30, Window: time.Minute},
	},
}

// sourceOrder is the order defaults are appended when no sources are configured.
var sourceOrder = []string{"WHO", "UN", "ILO", "UAE", "IRENA"}

// ApplyDefaults fills in zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	// Sources defaults
	if len(c.Sources) == 0 {
		for _, kind := range sourceOrder {
			c.Sources = append(c.Sources, SourceConfig{Kind: kind})
		}
	}
	for i := range c.Sources {
		applySourceDefaults(&c.Sources[i])
	}

	// Cache defaults
	if c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = DefaultCacheBackend
	}
	if c.Cache.Backend == "sqlite" && c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = DefaultSQLitePath
	}
	if c.Cache.Backend == "postgres" {
		applyDBDefaults(&c.Cache.Postgres)
	}

	// Sync defaults
	if c.Sync.Interval == 0 {
		c.Sync.Interval = DefaultSyncInterval
	}
	if c.Sync.CheckInterval == 0 {
		c.Sync.CheckInterval = DefaultCheckInterval
	}
	if c.Sync.SourceTimeout == 0 {
		c.Sync.SourceTimeout = DefaultSourceTimeout
	}
	if c.Sync.RetryBackoff == 0 {
		c.Sync.RetryBackoff = DefaultRetryBackoff
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applySourceDefaults(s *SourceConfig) {
	s.Kind = strings.ToUpper(strings.TrimSpace(s.Kind))
	def, known := sourceDefaults[s.Kind]
	if !known {
		def = SourceConfig{
			Endpoint:  DefaultSourceEndpoint,
			RateLimit: RateLimitConfig{MaxRequests: DefaultSourceMaxRequests, Window: DefaultSourceWindow},
		}
	}

	if s.BaseURL == "" {
		s.BaseURL = def.BaseURL
	}
	if s.Endpoint == "" {
		s.Endpoint = def.Endpoint
	}
	if s.RateLimit.MaxRequests == 0 {
		s.RateLimit.MaxRequests = def.RateLimit.MaxRequests
	}
	if s.RateLimit.Window == 0 {
		s.RateLimit.Window = def.RateLimit.Window
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
