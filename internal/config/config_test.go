package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
sources:
  - kind: WHO
    base_url: https://who.example.org/api
    endpoint: /days
    rate_limit:
      max_requests: 10
      window: 1m
  - kind: un
    base_url: https://un.example.org
cache:
  backend: sqlite
  sqlite_path: /tmp/cache.db
  ttl: 30m
sync:
  interval: 12h
  year: 2025
server:
  port: 9000
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2", len(cfg.Sources))
	}
	if cfg.Sources[0].BaseURL != "https://who.example.org/api" {
		t.Errorf("Sources[0].BaseURL = %q, want %q", cfg.Sources[0].BaseURL, "https://who.example.org/api")
	}
	if cfg.Sources[0].RateLimit.Window != time.Minute {
		t.Errorf("Sources[0].RateLimit.Window = %v, want %v", cfg.Sources[0].RateLimit.Window, time.Minute)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("Cache.TTL = %v, want %v", cfg.Cache.TTL, 30*time.Minute)
	}
	if cfg.Sync.Year != 2025 {
		t.Errorf("Sync.Year = %d, want 2025", cfg.Sync.Year)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_WHO_TOKEN", "secret123")

	yaml := `
sources:
  - kind: WHO
    credential: ${TEST_WHO_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Sources[0].Credential != "secret123" {
		t.Errorf("Sources[0].Credential = %q, want %q", cfg.Sources[0].Credential, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
sources:
  - kind: un
  - kind: UAE
    rate_limit:
      max_requests: 5
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	un := cfg.Sources[0]
	if un.Kind != "UN" {
		t.Errorf("Sources[0].Kind = %q, want %q", un.Kind, "UN")
	}
	if un.BaseURL != sourceDefaults["UN"].BaseURL {
		t.Errorf("Sources[0].BaseURL = %q, want default %q", un.BaseURL, sourceDefaults["UN"].BaseURL)
	}
	if un.RateLimit.MaxRequests != 200 || un.RateLimit.Window != time.Hour {
		t.Errorf("Sources[0].RateLimit = %+v, want 200/1h", un.RateLimit)
	}

	uae := cfg.Sources[1]
	if uae.RateLimit.MaxRequests != 5 {
		t.Errorf("Sources[1].RateLimit.MaxRequests = %d, want 5", uae.RateLimit.MaxRequests)
	}
	if uae.RateLimit.Window != time.Hour {
		t.Errorf("Sources[1].RateLimit.Window = %v, want default %v", uae.RateLimit.Window, time.Hour)
	}

	if cfg.Cache.TTL != DefaultCacheTTL {
		t.Errorf("Cache.TTL = %v, want default %v", cfg.Cache.TTL, DefaultCacheTTL)
	}
	if cfg.Cache.Backend != DefaultCacheBackend {
		t.Errorf("Cache.Backend = %q, want default %q", cfg.Cache.Backend, DefaultCacheBackend)
	}
	if cfg.Sync.Interval != DefaultSyncInterval {
		t.Errorf("Sync.Interval = %v, want default %v", cfg.Sync.Interval, DefaultSyncInterval)
	}
	if cfg.Sync.SourceTimeout != DefaultSourceTimeout {
		t.Errorf("Sync.SourceTimeout = %v, want default %v", cfg.Sync.SourceTimeout, DefaultSourceTimeout)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultServerPort)
	}
}

func TestDefault_AllSources(t *testing.T) {
	cfg := Default()

	if len(cfg.Sources) != 5 {
		t.Fatalf("len(Sources) = %d, want 5", len(cfg.Sources))
	}
	for i, want := range sourceOrder {
		if cfg.Sources[i].Kind != want {
			t.Errorf("Sources[%d].Kind = %q, want %q", i, cfg.Sources[i].Kind, want)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestLoadAndValidate_InvalidFile(t *testing.T) {
	path := writeTempFile(t, "sources: [unterminated")
	if _, err := LoadAndValidate(path); err == nil {
		t.Fatal("expected parse error")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	} else if !strings.Contains(err.Error(), "read config file") {
		t.Errorf("error = %q, want read config file prefix", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return Default()
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name: "all sources disabled",
			mutate: func(c *Config) {
				for i := range c.Sources {
					c.Sources[i].Disabled = true
				}
			},
			wantErr: "at least one enabled source is required",
		},
		{
			name:    "unknown kind",
			mutate:  func(c *Config) { c.Sources[0].Kind = "NASA" },
			wantErr: `sources[0].kind "NASA" is not a supported source`,
		},
		{
			name:    "duplicate kind",
			mutate:  func(c *Config) { c.Sources[1].Kind = "WHO" },
			wantErr: `sources[1].kind "WHO" is configured more than once`,
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.Sources[2].BaseURL = "/api" },
			wantErr: `sources[2].base_url "/api" must be an absolute http(s) URL`,
		},
		{
			name:    "limit without window",
			mutate:  func(c *Config) { c.Sources[0].RateLimit.Window = 0 },
			wantErr: "sources[0].rate_limit.window must be > 0",
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "redis" },
			wantErr: `cache.backend must be one of memory, sqlite, postgres, got "redis"`,
		},
		{
			name: "postgres missing password",
			mutate: func(c *Config) {
				c.Cache.Backend = "postgres"
				c.Cache.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 4}
			},
			wantErr: "cache.postgres.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Cache.Backend = "postgres"
				c.Cache.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "cache.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "bad year",
			mutate:  func(c *Config) { c.Sync.Year = 25 },
			wantErr: "sync.year must be a four-digit year, got 25",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: `logging.level must be one of debug, info, warn, error, got "trace"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	cfg := Default()
	cfg.Sources[1].Disabled = true

	enabled := cfg.Enabled()
	if len(enabled) != 4 {
		t.Fatalf("len(Enabled()) = %d, want 4", len(enabled))
	}
	for _, s := range enabled {
		if s.Kind == "UN" {
			t.Error("disabled source UN returned by Enabled()")
		}
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
