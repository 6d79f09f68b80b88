package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Durations are recorded in milliseconds.
var durationBucketsMs = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// Metrics holds all gateway metrics.
type Metrics struct {
	// Cache metrics
	CacheHits      Counter
	CacheMisses    Counter
	CacheBypass    Counter
	CacheEvictions Counter
	CacheSize      Gauge

	// Request coalescing metrics
	FlightsShared Counter

	// Upstream API metrics
	UpstreamRequests Counter
	UpstreamDuration Histogram

	// HTTP server metrics
	HTTPRequests Counter
	HTTPDuration Histogram

	// Circuit breaker metrics
	CircuitBreakerState Gauge
}

// NewMetrics creates the gateway metrics on the given provider.
// A nil provider yields noop instruments.
func NewMetrics(provider MeterProvider) *Metrics {
	if provider == nil {
		provider = NewNoopMeterProvider()
	}

	cacheMeter := provider.Meter("cache")
	upstreamMeter := provider.Meter("upstream")
	httpMeter := provider.Meter("http")

	return &Metrics{
		CacheHits:      cacheMeter.Counter("gateway.cache.hits", "Total cache hits"),
		CacheMisses:    cacheMeter.Counter("gateway.cache.misses", "Total cache misses"),
		CacheBypass:    cacheMeter.Counter("gateway.cache.bypass", "Reads that skipped the cache"),
		CacheEvictions: cacheMeter.Counter("gateway.cache.evictions", "Entries evicted by the capacity bound"),
		CacheSize:      cacheMeter.Gauge("gateway.cache.size", "Entries currently cached"),

		FlightsShared: cacheMeter.Counter("gateway.flight.shared",
			"Callers served by an already in-flight fetch"),

		UpstreamRequests: upstreamMeter.Counter("gateway.upstream.requests",
			"Total upstream API requests"),
		UpstreamDuration: upstreamMeter.Histogram("gateway.upstream.duration",
			"Upstream request duration in milliseconds", durationBucketsMs...),

		HTTPRequests: httpMeter.Counter("gateway.http.requests", "Total HTTP requests served"),
		HTTPDuration: httpMeter.Histogram("gateway.http.duration",
			"HTTP request duration in milliseconds", durationBucketsMs...),

		CircuitBreakerState: upstreamMeter.Gauge("gateway.circuit_breaker.state",
			"Circuit breaker state (0=closed, 1=open, 2=half-open)"),
	}
}

// RecordCacheHit records a cache hit for a namespace.
func (m *Metrics) RecordCacheHit(ctx context.Context, namespace string) {
	m.CacheHits.Inc(ctx, attribute.String("namespace", namespace))
}

// RecordCacheMiss records a cache miss for a namespace.
func (m *Metrics) RecordCacheMiss(ctx context.Context, namespace string) {
	m.CacheMisses.Inc(ctx, attribute.String("namespace", namespace))
}

// RecordCacheBypass records a read that skipped the cache on request.
func (m *Metrics) RecordCacheBypass(ctx context.Context, namespace string) {
	m.CacheBypass.Inc(ctx, attribute.String("namespace", namespace))
}

// RecordCacheEviction records an entry dropped by the capacity bound.
func (m *Metrics) RecordCacheEviction(ctx context.Context) {
	m.CacheEvictions.Inc(ctx)
}

// SetCacheSize records the number of entries currently cached.
func (m *Metrics) SetCacheSize(ctx context.Context, entries int) {
	m.CacheSize.Record(ctx, int64(entries))
}

// RecordFlightShared records a caller that joined an in-flight fetch
// instead of starting its own.
func (m *Metrics) RecordFlightShared(ctx context.Context, namespace string) {
	m.FlightsShared.Inc(ctx, attribute.String("namespace", namespace))
}

// RecordUpstreamRequest records an upstream API call.
func (m *Metrics) RecordUpstreamRequest(ctx context.Context, endpoint, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	}
	m.UpstreamRequests.Inc(ctx, attrs...)
	m.UpstreamDuration.Record(ctx, float64(duration.Milliseconds()), attrs...)
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	}
	m.HTTPRequests.Inc(ctx, attrs...)
	m.HTTPDuration.Record(ctx, float64(duration.Milliseconds()), attrs...)
}

// SetCircuitBreakerState records circuit breaker state transitions.
// 0 = closed, 1 = open, 2 = half-open
func (m *Metrics) SetCircuitBreakerState(ctx context.Context, name string, state int64) {
	m.CircuitBreakerState.Record(ctx, state, attribute.String("name", name))
}
