// Package upstream implements the typed HTTP client for the prediction
// market API. All outbound traffic flows through one client carrying the
// full resilience stack: adaptive rate limiting, retries with backoff,
// and a circuit breaker per upstream host.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jshsmth/glitch-markets-sub000/internal/platform/observability"
	"github.com/jshsmth/glitch-markets-sub000/internal/platform/resilience"
)

// maxErrorBody caps how much of an error response body is kept for
// diagnostics.
const maxErrorBody = 4 << 10

// Client is the HTTP client for the upstream prediction market API.
// Builder endpoints live on a separate data host; everything else is
// served by the core host.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	dataBaseURL string
	userAgent   string

	limiter  *resilience.AdaptiveLimiter
	retryCfg resilience.RetryConfig
	cb       *resilience.CircuitBreaker

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	healthMu sync.RWMutex
	health   ProviderHealth
}

// Config holds upstream client configuration.
type Config struct {
	BaseURL     string
	DataBaseURL string
	Timeout     time.Duration
	UserAgent   string

	RateLimitRPM    int
	RateLimitMinRPM int
	RateLimitMaxRPM int
	RateLimitBurst  int

	Retry resilience.RetryConfig

	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration

	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  trace.Tracer
}

// New creates an upstream client with defaults applied.
func New(cfg Config) (*Client, error) {
	// Set defaults
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.glitch.markets"
	}
	if cfg.DataBaseURL == "" {
		cfg.DataBaseURL = cfg.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "markets-gateway/dev"
	}
	if cfg.RateLimitRPM == 0 {
		cfg.RateLimitRPM = 600
	}
	if cfg.RateLimitMinRPM == 0 {
		cfg.RateLimitMinRPM = 60
	}
	if cfg.RateLimitMaxRPM == 0 {
		cfg.RateLimitMaxRPM = 1200
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 20
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   250 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Jitter:      0.2,
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger("info", "json")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetrics(nil)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("upstream")
	}

	metrics := cfg.Metrics

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             "core-api",
		FailureThreshold: cfg.BreakerFailureThreshold,
		SuccessThreshold: cfg.BreakerSuccessThreshold,
		Timeout:          cfg.BreakerTimeout,
		IsFailure:        isBreakerFailure,
		OnStateChange: func(from, to resilience.State) {
			metrics.SetCircuitBreakerState(context.Background(), "core-api", int64(to))
		},
	})
	metrics.SetCircuitBreakerState(context.Background(), "core-api", cb.StateInt())

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		dataBaseURL: strings.TrimRight(cfg.DataBaseURL, "/"),
		userAgent:   cfg.UserAgent,
		limiter: resilience.NewAdaptiveLimiterFromRPM(
			cfg.RateLimitRPM,
			cfg.RateLimitMinRPM,
			cfg.RateLimitMaxRPM,
			cfg.RateLimitBurst,
		),
		retryCfg: cfg.Retry,
		cb:       cb,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		health: ProviderHealth{
			Provider: "core-api",
		},
	}, nil
}

// Markets fetches the market list filtered by the given query parameters.
func (c *Client) Markets(ctx context.Context, query url.Values) ([]Market, error) {
	var markets []Market
	if err := c.get(ctx, "markets", c.baseURL, "/markets", query, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// MarketByID fetches a single market by its id.
func (c *Client) MarketByID(ctx context.Context, id string) (*Market, error) {
	var market Market
	if err := c.get(ctx, "market_by_id", c.baseURL, "/markets/"+url.PathEscape(id), nil, &market); err != nil {
		return nil, err
	}
	return &market, nil
}

// MarketBySlug fetches a single market by its URL slug.
func (c *Client) MarketBySlug(ctx context.Context, slug string) (*Market, error) {
	var market Market
	if err := c.get(ctx, "market_by_slug", c.baseURL, "/markets/slug/"+url.PathEscape(slug), nil, &market); err != nil {
		return nil, err
	}
	return &market, nil
}

// Events fetches the event list filtered by the given query parameters.
func (c *Client) Events(ctx context.Context, query url.Values) ([]Event, error) {
	var events []Event
	if err := c.get(ctx, "events", c.baseURL, "/events", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// EventByID fetches a single event by its id.
func (c *Client) EventByID(ctx context.Context, id string) (*Event, error) {
	var event Event
	if err := c.get(ctx, "event_by_id", c.baseURL, "/events/"+url.PathEscape(id), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// EventBySlug fetches a single event by its URL slug.
func (c *Client) EventBySlug(ctx context.Context, slug string) (*Event, error) {
	var event Event
	if err := c.get(ctx, "event_by_slug", c.baseURL, "/events/slug/"+url.PathEscape(slug), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// SeriesList fetches the series list filtered by the given query parameters.
func (c *Client) SeriesList(ctx context.Context, query url.Values) ([]Series, error) {
	var series []Series
	if err := c.get(ctx, "series", c.baseURL, "/series", query, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// SeriesByID fetches a single series by its id.
func (c *Client) SeriesByID(ctx context.Context, id string) (*Series, error) {
	var series Series
	if err := c.get(ctx, "series_by_id", c.baseURL, "/series/"+url.PathEscape(id), nil, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// Comments fetches comments filtered by the given query parameters.
func (c *Client) Comments(ctx context.Context, query url.Values) ([]Comment, error) {
	var comments []Comment
	if err := c.get(ctx, "comments", c.baseURL, "/comments", query, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Search runs the public search across markets, events and tags.
func (c *Client) Search(ctx context.Context, query url.Values) (*SearchResult, error) {
	var result SearchResult
	if err := c.get(ctx, "search", c.baseURL, "/public-search", query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Teams fetches sports teams filtered by the given query parameters.
func (c *Client) Teams(ctx context.Context, query url.Values) ([]Team, error) {
	var teams []Team
	if err := c.get(ctx, "teams", c.baseURL, "/teams", query, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// Leagues fetches the supported sports leagues.
func (c *Client) Leagues(ctx context.Context) ([]League, error) {
	var leagues []League
	if err := c.get(ctx, "leagues", c.baseURL, "/sports", nil, &leagues); err != nil {
		return nil, err
	}
	return leagues, nil
}

// BuilderLeaderboard fetches the builder leaderboard from the data host.
func (c *Client) BuilderLeaderboard(ctx context.Context, query url.Values) ([]BuilderStanding, error) {
	var standings []BuilderStanding
	if err := c.get(ctx, "builder_leaderboard", c.dataBaseURL, "/builders/leaderboard", query, &standings); err != nil {
		return nil, err
	}
	return standings, nil
}

// BuilderVolume fetches the aggregate volume for one builder address
// from the data host.
func (c *Client) BuilderVolume(ctx context.Context, address string, query url.Values) (*BuilderVolume, error) {
	var volume BuilderVolume
	if err := c.get(ctx, "builder_volume", c.dataBaseURL, "/builders/volume/"+url.PathEscape(address), query, &volume); err != nil {
		return nil, err
	}
	return &volume, nil
}

// get runs one GET request through the resilience stack and decodes the
// JSON response into out. The retry layer only re-runs attempts that
// never produced a decodable body, so out is written at most once.
func (c *Client) get(ctx context.Context, endpoint, base, path string, query url.Values, out any) error {
	ctx, span := c.tracer.Start(ctx, "upstream."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", http.MethodGet),
			attribute.String("http.route", path),
		),
	)

	err := c.cb.Execute(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, c.retryCfg, isRetryable, func(ctx context.Context) error {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}

			start := time.Now()
			err := c.do(ctx, base, path, query, out)
			duration := time.Since(start)

			c.recordHealth(err, duration)
			c.recordAttempt(ctx, endpoint, err, duration)

			return err
		})
	})

	observability.EndSpanWithError(span, err)

	if err != nil {
		c.logger.Warn("upstream request failed",
			"endpoint", endpoint,
			"path", path,
			"error", err,
		)
	}

	return err
}

func (c *Client) do(ctx context.Context, base, path string, query url.Values, out any) error {
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Endpoint:   path,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// isRetryable allows retries on 429, 5xx, and transport errors. Context
// cancellation and every other 4xx answer are terminal.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode >= http.StatusInternalServerError
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// isBreakerFailure counts only 5xx and transport errors toward opening
// the circuit. Served 4xx answers (missing ids, throttling) must not
// take the host offline.
func isBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}

	return true
}

// recordAttempt feeds per-attempt outcomes to the adaptive limiter and
// the upstream request metrics.
func (c *Client) recordAttempt(ctx context.Context, endpoint string, err error, duration time.Duration) {
	var apiErr *APIError

	status := "success"
	switch {
	case err == nil:
	case errors.As(err, &apiErr):
		status = strconv.Itoa(apiErr.StatusCode)
	default:
		status = "network_error"
	}

	switch {
	case err == nil:
		c.limiter.RecordSuccess()
	case apiErr != nil && apiErr.StatusCode == http.StatusTooManyRequests:
		c.limiter.RecordRateLimitError()
	case apiErr != nil && apiErr.StatusCode < http.StatusInternalServerError:
		// A served 4xx is an answer, not upstream distress.
		c.limiter.RecordSuccess()
	default:
		c.limiter.RecordError()
	}

	c.metrics.RecordUpstreamRequest(ctx, endpoint, status, duration)

	c.logger.Debug("upstream request",
		"endpoint", endpoint,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
}

func (c *Client) recordHealth(err error, duration time.Duration) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.health.LastDuration = duration

	// A served 4xx still proves the host is reachable and answering.
	if !isBreakerFailure(err) {
		c.health.LastSuccess = time.Now()
		c.health.LastError = ""
		c.health.ConsecutiveFailures = 0
		return
	}

	c.health.LastFailure = time.Now()
	c.health.LastError = err.Error()
	c.health.ConsecutiveFailures++
}

// Health returns the current health status of the upstream client.
func (c *Client) Health() ProviderHealth {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()

	h := c.health
	h.CircuitState = c.cb.State().String()
	return h
}

// CurrentRate exposes the adaptive limiter's current requests-per-second
// rate, for diagnostics.
func (c *Client) CurrentRate() float64 {
	return c.limiter.CurrentRate()
}
