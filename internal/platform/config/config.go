package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the markets gateway
type Config struct {
	Service       ServiceConfig       `mapstructure:"service"`
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
	Cache         CacheConfig         `mapstructure:"cache"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Warmup        WarmupConfig        `mapstructure:"warmup"`
}

// ServiceConfig identifies the running service
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// UpstreamConfig holds the prediction-market API client configuration
type UpstreamConfig struct {
	// BaseURL is the core API host (markets, events, series, comments, search)
	BaseURL string `mapstructure:"base_url"`
	// DataBaseURL is the data API host (builder leaderboard and volume)
	DataBaseURL string        `mapstructure:"data_base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
}

// RateLimitConfig holds adaptive rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute    int `mapstructure:"requests_per_minute"`
	MinRequestsPerMinute int `mapstructure:"min_requests_per_minute"`
	MaxRequestsPerMinute int `mapstructure:"max_requests_per_minute"`
	Burst                int `mapstructure:"burst"`
}

// RetryConfig holds upstream retry configuration
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Jitter      float64       `mapstructure:"jitter"`
}

// BreakerConfig holds circuit breaker thresholds
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds read-through caching configuration
type CacheConfig struct {
	// Enabled turns the cache layer off entirely when false; reads
	// still coalesce unless the caller opts out of that too
	Enabled  bool      `mapstructure:"enabled"`
	Capacity int       `mapstructure:"capacity"`
	TTL      TTLConfig `mapstructure:"ttl"`
}

// TTLConfig holds per-entity cache TTLs
type TTLConfig struct {
	Markets     time.Duration `mapstructure:"markets"`
	Events      time.Duration `mapstructure:"events"`
	Series      time.Duration `mapstructure:"series"`
	Comments    time.Duration `mapstructure:"comments"`
	Search      time.Duration `mapstructure:"search"`
	Teams       time.Duration `mapstructure:"teams"`
	Leagues     time.Duration `mapstructure:"leagues"`
	Leaderboard time.Duration `mapstructure:"leaderboard"`
	Volume      time.Duration `mapstructure:"volume"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TracingConfig holds tracing settings
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// WarmupConfig holds cache warming settings
type WarmupConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// Read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not fatal if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Parse and validate
	if err := cfg.parse(); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Service defaults
	v.SetDefault("service.name", "markets-gateway")
	v.SetDefault("service.version", "1.0.0")

	// Upstream defaults
	v.SetDefault("upstream.base_url", "https://api.glitch.markets")
	v.SetDefault("upstream.data_base_url", "https://data-api.glitch.markets")
	v.SetDefault("upstream.timeout", "10s")
	v.SetDefault("upstream.rate_limit.requests_per_minute", 600)
	v.SetDefault("upstream.rate_limit.min_requests_per_minute", 60)
	v.SetDefault("upstream.rate_limit.max_requests_per_minute", 1200)
	v.SetDefault("upstream.rate_limit.burst", 20)
	v.SetDefault("upstream.retry.max_attempts", 3)
	v.SetDefault("upstream.retry.base_delay", "250ms")
	v.SetDefault("upstream.retry.max_delay", "5s")
	v.SetDefault("upstream.retry.jitter", 0.2)
	v.SetDefault("upstream.breaker.failure_threshold", 5)
	v.SetDefault("upstream.breaker.success_threshold", 2)
	v.SetDefault("upstream.breaker.timeout", "60s")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.capacity", 1000)
	v.SetDefault("cache.ttl.markets", "60s")
	v.SetDefault("cache.ttl.events", "60s")
	v.SetDefault("cache.ttl.series", "60s")
	v.SetDefault("cache.ttl.comments", "60s")
	v.SetDefault("cache.ttl.search", "60s")
	v.SetDefault("cache.ttl.teams", "60s")
	v.SetDefault("cache.ttl.leagues", "5m")
	v.SetDefault("cache.ttl.leaderboard", "5m")
	v.SetDefault("cache.ttl.volume", "10m")

	// HTTP defaults
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "15s")

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.port", 9091)
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")

	// Warmup defaults
	v.SetDefault("warmup.enabled", true)
	v.SetDefault("warmup.timeout", "30s")
	v.SetDefault("warmup.concurrency", 4)
}

// parse normalizes derived values
func (c *Config) parse() error {
	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	c.Upstream.DataBaseURL = strings.TrimRight(c.Upstream.DataBaseURL, "/")

	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = fmt.Sprintf("%s/%s", c.Service.Name, c.Service.Version)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Upstream validation
	for _, base := range []string{c.Upstream.BaseURL, c.Upstream.DataBaseURL} {
		if base == "" {
			return fmt.Errorf("upstream base URLs are required")
		}
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid upstream base URL: %s", base)
		}
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}

	rl := c.Upstream.RateLimit
	if rl.RequestsPerMinute <= 0 {
		return fmt.Errorf("upstream rate limit must be positive")
	}
	if rl.MinRequestsPerMinute > rl.RequestsPerMinute || rl.RequestsPerMinute > rl.MaxRequestsPerMinute {
		return fmt.Errorf("upstream rate limits must satisfy min <= base <= max")
	}

	if c.Upstream.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be >= 1")
	}

	if c.Upstream.Breaker.FailureThreshold < 1 || c.Upstream.Breaker.SuccessThreshold < 1 {
		return fmt.Errorf("breaker thresholds must be >= 1")
	}

	// Cache validation
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache capacity must be positive")
	}

	ttls := map[string]time.Duration{
		"markets":     c.Cache.TTL.Markets,
		"events":      c.Cache.TTL.Events,
		"series":      c.Cache.TTL.Series,
		"comments":    c.Cache.TTL.Comments,
		"search":      c.Cache.TTL.Search,
		"teams":       c.Cache.TTL.Teams,
		"leagues":     c.Cache.TTL.Leagues,
		"leaderboard": c.Cache.TTL.Leaderboard,
		"volume":      c.Cache.TTL.Volume,
	}
	for name, ttl := range ttls {
		if ttl <= 0 {
			return fmt.Errorf("cache TTL for %s must be positive", name)
		}
	}

	// HTTP validation
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}

	// Observability validation
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Observability.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Observability.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Observability.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Observability.Logging.Format)
	}

	if c.Observability.Tracing.Enabled && c.Observability.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}

	// Warmup validation
	if c.Warmup.Enabled && c.Warmup.Concurrency < 1 {
		return fmt.Errorf("warmup concurrency must be >= 1")
	}

	return nil
}
