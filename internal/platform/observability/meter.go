package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// MeterProvider hands out per-component meters and, when a Prometheus
// reader is configured, serves the scrape endpoint.
type MeterProvider interface {
	// Meter returns the meter for one component name.
	Meter(name string) Meter

	// Shutdown flushes and stops all readers.
	Shutdown(ctx context.Context) error

	// Handler serves the Prometheus scrape endpoint. Without a
	// Prometheus reader it answers 404.
	Handler() http.Handler
}

// Meter creates the instruments of one component.
type Meter interface {
	Counter(name, description string) Counter
	Gauge(name, description string) Gauge
	Histogram(name, description string, buckets ...float64) Histogram
}

// Counter counts occurrences. Counters only go up.
type Counter interface {
	Inc(ctx context.Context, attrs ...attribute.KeyValue)
}

// Gauge records a point-in-time value.
type Gauge interface {
	Record(ctx context.Context, value int64, attrs ...attribute.KeyValue)
}

// Histogram records a value distribution.
type Histogram interface {
	Record(ctx context.Context, value float64, attrs ...attribute.KeyValue)
}

// MetricProviderType selects a metric backend.
type MetricProviderType string

const (
	ProviderPrometheus MetricProviderType = "prometheus"
	ProviderOTLP       MetricProviderType = "otlp"
)

// MetricProviderConfig configures one metric backend.
type MetricProviderConfig struct {
	Type     MetricProviderType
	Endpoint string            // OTLP gRPC endpoint
	Headers  map[string]string // OTLP headers
	Insecure bool              // OTLP without TLS
}

// MeterProviderConfig configures the meter provider. An empty Providers
// list falls back to a single Prometheus reader.
type MeterProviderConfig struct {
	ServiceName string
	Version     string
	Providers   []MetricProviderConfig
}

type otelMeterProvider struct {
	provider *sdkmetric.MeterProvider
	prom     *prometheus.Exporter
}

// NewMeterProvider builds the configured readers and registers the
// provider globally.
func NewMeterProvider(cfg MeterProviderConfig) (MeterProvider, error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := cfg.Providers
	if len(providers) == 0 {
		providers = []MetricProviderConfig{{Type: ProviderPrometheus}}
	}

	var (
		readers []sdkmetric.Reader
		prom    *prometheus.Exporter
	)
	for _, pc := range providers {
		switch pc.Type {
		case ProviderPrometheus:
			exp, err := prometheus.New()
			if err != nil {
				return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
			}
			prom = exp
			readers = append(readers, exp)

		case ProviderOTLP:
			opts := []otlpmetricgrpc.Option{
				otlpmetricgrpc.WithEndpointURL(pc.Endpoint),
			}
			if len(pc.Headers) > 0 {
				opts = append(opts, otlpmetricgrpc.WithHeaders(pc.Headers))
			}
			if pc.Insecure {
				opts = append(opts, otlpmetricgrpc.WithInsecure())
			}

			exp, err := otlpmetricgrpc.New(ctx, opts...)
			if err != nil {
				return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
			}
			readers = append(readers, sdkmetric.NewPeriodicReader(exp))
		}
	}

	sdkOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		sdkOpts = append(sdkOpts, sdkmetric.WithReader(reader))
	}

	provider := sdkmetric.NewMeterProvider(sdkOpts...)
	otel.SetMeterProvider(provider)

	return &otelMeterProvider{provider: provider, prom: prom}, nil
}

func (p *otelMeterProvider) Meter(name string) Meter {
	return &otelMeter{meter: p.provider.Meter(name)}
}

func (p *otelMeterProvider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

func (p *otelMeterProvider) Handler() http.Handler {
	if p.prom != nil {
		return promhttp.Handler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "metrics not available", http.StatusNotFound)
	})
}

type otelMeter struct {
	meter metric.Meter
}

// Instrument creation fails only on invalid names; a failed
// registration degrades to a noop instrument.

func (m *otelMeter) Counter(name, description string) Counter {
	counter, err := m.meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return noopCounter{}
	}
	return &otelCounter{counter: counter}
}

func (m *otelMeter) Gauge(name, description string) Gauge {
	gauge, err := m.meter.Int64Gauge(name, metric.WithDescription(description))
	if err != nil {
		return noopGauge{}
	}
	return &otelGauge{gauge: gauge}
}

func (m *otelMeter) Histogram(name, description string, buckets ...float64) Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description)}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}

	histogram, err := m.meter.Float64Histogram(name, opts...)
	if err != nil {
		return noopHistogram{}
	}
	return &otelHistogram{histogram: histogram}
}

type otelCounter struct {
	counter metric.Int64Counter
}

func (c *otelCounter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

type otelGauge struct {
	gauge metric.Int64Gauge
}

func (g *otelGauge) Record(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	g.gauge.Record(ctx, value, metric.WithAttributes(attrs...))
}

type otelHistogram struct {
	histogram metric.Float64Histogram
}

func (h *otelHistogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// NewNoopMeterProvider returns a provider whose instruments discard
// every measurement. Used when metrics are disabled and in tests.
func NewNoopMeterProvider() MeterProvider {
	return noopMeterProvider{}
}

type noopMeterProvider struct{}

func (noopMeterProvider) Meter(_ string) Meter { return noopMeter{} }

func (noopMeterProvider) Shutdown(_ context.Context) error { return nil }

func (noopMeterProvider) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
}

type noopMeter struct{}

func (noopMeter) Counter(_, _ string) Counter                   { return noopCounter{} }
func (noopMeter) Gauge(_, _ string) Gauge                       { return noopGauge{} }
func (noopMeter) Histogram(_, _ string, _ ...float64) Histogram { return noopHistogram{} }

type noopCounter struct{}

func (noopCounter) Inc(_ context.Context, _ ...attribute.KeyValue) {}

type noopGauge struct{}

func (noopGauge) Record(_ context.Context, _ int64, _ ...attribute.KeyValue) {}

type noopHistogram struct{}

func (noopHistogram) Record(_ context.Context, _ float64, _ ...attribute.KeyValue) {}
