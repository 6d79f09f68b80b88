package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Upstream.BaseURL != "https://api.glitch.markets" {
		t.Errorf("Expected default base URL, got %s", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.DataBaseURL != "https://data-api.glitch.markets" {
		t.Errorf("Expected default data base URL, got %s", cfg.Upstream.DataBaseURL)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Errorf("Expected 10s upstream timeout, got %v", cfg.Upstream.Timeout)
	}
	if !cfg.Cache.Enabled {
		t.Error("Expected cache enabled by default")
	}
	if cfg.Cache.Capacity != 1000 {
		t.Errorf("Expected default capacity 1000, got %d", cfg.Cache.Capacity)
	}
	if cfg.Cache.TTL.Markets != 60*time.Second {
		t.Errorf("Expected 60s markets TTL, got %v", cfg.Cache.TTL.Markets)
	}
	if cfg.Cache.TTL.Leagues != 5*time.Minute {
		t.Errorf("Expected 5m leagues TTL, got %v", cfg.Cache.TTL.Leagues)
	}
	if cfg.Cache.TTL.Volume != 10*time.Minute {
		t.Errorf("Expected 10m volume TTL, got %v", cfg.Cache.TTL.Volume)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("Expected HTTP port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Observability.Logging.Level != "info" {
		t.Errorf("Expected info log level, got %s", cfg.Observability.Logging.Level)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
upstream:
  base_url: https://markets.example.com/
  timeout: 3s
cache:
  capacity: 250
  ttl:
    markets: 30s
http:
  port: 9999
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Upstream.BaseURL != "https://markets.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Timeout != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %v", cfg.Upstream.Timeout)
	}
	if cfg.Cache.Capacity != 250 {
		t.Errorf("Expected capacity 250, got %d", cfg.Cache.Capacity)
	}
	if cfg.Cache.TTL.Markets != 30*time.Second {
		t.Errorf("Expected 30s markets TTL, got %v", cfg.Cache.TTL.Markets)
	}
	if cfg.Cache.TTL.Events != 60*time.Second {
		t.Errorf("Expected default 60s events TTL, got %v", cfg.Cache.TTL.Events)
	}
	if cfg.HTTP.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", cfg.HTTP.Port)
	}
}

func TestParse_DerivesUserAgent(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Upstream.UserAgent != "markets-gateway/1.0.0" {
		t.Errorf("Expected derived user agent, got %s", cfg.Upstream.UserAgent)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base URL", func(c *Config) { c.Upstream.BaseURL = "" }},
		{"URL without scheme", func(c *Config) { c.Upstream.DataBaseURL = "data-api.example.com" }},
		{"non-positive timeout", func(c *Config) { c.Upstream.Timeout = 0 }},
		{"zero rate limit", func(c *Config) { c.Upstream.RateLimit.RequestsPerMinute = 0 }},
		{"min above base rate", func(c *Config) { c.Upstream.RateLimit.MinRequestsPerMinute = 10000 }},
		{"zero retry attempts", func(c *Config) { c.Upstream.Retry.MaxAttempts = 0 }},
		{"zero breaker threshold", func(c *Config) { c.Upstream.Breaker.FailureThreshold = 0 }},
		{"non-positive capacity", func(c *Config) { c.Cache.Capacity = 0 }},
		{"zero TTL", func(c *Config) { c.Cache.TTL.Comments = 0 }},
		{"port out of range", func(c *Config) { c.HTTP.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Observability.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Observability.Logging.Format = "pretty" }},
		{"tracing without endpoint", func(c *Config) {
			c.Observability.Tracing.Enabled = true
			c.Observability.Tracing.Endpoint = ""
		}},
		{"zero warmup concurrency", func(c *Config) { c.Warmup.Concurrency = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}
