package config

import (
	"errors"
	"fmt"
	"net/url"
)

var validKinds = map[string]bool{"WHO": true, "UN": true, "ILO": true, "UAE": true, "IRENA": true}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if len(c.Enabled()) == 0 {
		return errors.New("at least one enabled source is required")
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		prefix := fmt.Sprintf("sources[%d]", i)
		if err := s.validate(prefix); err != nil {
			return err
		}
		if seen[s.Kind] {
			return fmt.Errorf("%s.kind %q is configured more than once", prefix, s.Kind)
		}
		seen[s.Kind] = true
	}

	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must be >= 0")
	}
	switch c.Cache.Backend {
	case "memory":
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			return errors.New("cache.sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if err := c.Cache.Postgres.validate("cache.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cache.backend must be one of memory, sqlite, postgres, got %q", c.Cache.Backend)
	}

	if c.Sync.Interval <= 0 {
		return errors.New("sync.interval must be > 0")
	}
	if c.Sync.CheckInterval <= 0 {
		return errors.New("sync.check_interval must be > 0")
	}
	if c.Sync.MaxRetries < 0 {
		return errors.New("sync.max_retries must be >= 0")
	}
	if c.Sync.Year != 0 && (c.Sync.Year < 1900 || c.Sync.Year > 9999) {
		return fmt.Errorf("sync.year must be a four-digit year, got %d", c.Sync.Year)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (s *SourceConfig) validate(prefix string) error {
	if !validKinds[s.Kind] {
		return fmt.Errorf("%s.kind %q is not a supported source", prefix, s.Kind)
	}
	if s.BaseURL == "" {
		return fmt.Errorf("%s.base_url is required", prefix)
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s.base_url %q must be an absolute http(s) URL", prefix, s.BaseURL)
	}
	if s.RateLimit.MaxRequests < 0 {
		return fmt.Errorf("%s.rate_limit.max_requests must be >= 0", prefix)
	}
	if s.RateLimit.MaxRequests > 0 && s.RateLimit.Window <= 0 {
		return fmt.Errorf("%s.rate_limit.window must be > 0", prefix)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%s.timeout must be >= 0", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
