package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jshsmth/glitch-markets-sub000/internal/httpapi"
	"github.com/jshsmth/glitch-markets-sub000/internal/platform/cache"
	"github.com/jshsmth/glitch-markets-sub000/internal/platform/config"
	"github.com/jshsmth/glitch-markets-sub000/internal/platform/observability"
	"github.com/jshsmth/glitch-markets-sub000/internal/platform/resilience"
	"github.com/jshsmth/glitch-markets-sub000/internal/service"
	"github.com/jshsmth/glitch-markets-sub000/internal/upstream"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	log.Println("Loading configuration...")
	cfg := config.MustLoad(*configPath)

	// Setup observability (foundational - must be first)
	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	meterProvider, err := newMeterProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to create meter provider: %v", err)
	}
	defer meterProvider.Shutdown(context.Background())

	metrics := observability.NewMetrics(meterProvider)

	tracerProvider, err := observability.NewTracerProvider(ctx,
		cfg.Service.Name,
		cfg.Service.Version,
		cfg.Observability.Tracing.Endpoint,
		cfg.Observability.Tracing.Enabled,
	)
	if err != nil {
		log.Fatalf("Failed to create tracer provider: %v", err)
	}
	defer tracerProvider.Shutdown(context.Background())

	logger.Info("observability setup complete")

	// Upstream client
	logger.Info("creating upstream client...")
	client, err := upstream.New(upstream.Config{
		BaseURL:     cfg.Upstream.BaseURL,
		DataBaseURL: cfg.Upstream.DataBaseURL,
		Timeout:     cfg.Upstream.Timeout,
		UserAgent:   cfg.Upstream.UserAgent,

		RateLimitRPM:    cfg.Upstream.RateLimit.RequestsPerMinute,
		RateLimitMinRPM: cfg.Upstream.RateLimit.MinRequestsPerMinute,
		RateLimitMaxRPM: cfg.Upstream.RateLimit.MaxRequestsPerMinute,
		RateLimitBurst:  cfg.Upstream.RateLimit.Burst,

		Retry: resilience.RetryConfig{
			MaxAttempts: cfg.Upstream.Retry.MaxAttempts,
			BaseDelay:   cfg.Upstream.Retry.BaseDelay,
			MaxDelay:    cfg.Upstream.Retry.MaxDelay,
			Jitter:      cfg.Upstream.Retry.Jitter,
		},

		BreakerFailureThreshold: cfg.Upstream.Breaker.FailureThreshold,
		BreakerSuccessThreshold: cfg.Upstream.Breaker.SuccessThreshold,
		BreakerTimeout:          cfg.Upstream.Breaker.Timeout,

		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracerProvider.Tracer(),
	})
	if err != nil {
		log.Fatalf("Failed to create upstream client: %v", err)
	}

	// Shared store, flight table and registry
	store := cache.NewMemoryCache(cfg.Cache.Capacity)
	defer store.Close()
	store.OnEvict(func(string) {
		metrics.RecordCacheEviction(context.Background())
	})

	registry := service.NewRegistry(service.RegistryConfig{
		Cache:        store,
		Flights:      cache.NewFlight(),
		Client:       client,
		Logger:       logger,
		Metrics:      metrics,
		CacheEnabled: cfg.Cache.Enabled,
		TTL: service.TTLConfig{
			Markets:     cfg.Cache.TTL.Markets,
			Events:      cfg.Cache.TTL.Events,
			Series:      cfg.Cache.TTL.Series,
			Comments:    cfg.Cache.TTL.Comments,
			Search:      cfg.Cache.TTL.Search,
			Teams:       cfg.Cache.TTL.Teams,
			Leagues:     cfg.Cache.TTL.Leagues,
			Leaderboard: cfg.Cache.TTL.Leaderboard,
			Volume:      cfg.Cache.TTL.Volume,
		},
	})

	// Warm hot lists before taking traffic
	if cfg.Warmup.Enabled && cfg.Cache.Enabled {
		logger.Info("warming caches...")
		warmer := cache.NewWarmer(logger, cache.WarmupConfig{
			Timeout:         cfg.Warmup.Timeout,
			Concurrency:     cfg.Warmup.Concurrency,
			ContinueOnError: true,
		})
		warmer.RegisterProvider(service.NewMarketService(registry))
		warmer.RegisterProvider(service.NewSportsService(registry))
		warmer.Warmup(ctx)
	}

	// HTTP servers
	apiServer := httpapi.NewServer(httpapi.ServerConfig{
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		Registry:       registry,
		Logger:         logger,
		Metrics:        metrics,
		Tracer:         tracerProvider.Tracer(),
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
	})

	var metricsServer *http.Server
	if cfg.Observability.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", meterProvider.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Observability.Metrics.Port),
			Handler: mux,
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(apiServer.Start)

	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("metrics server listening", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	// Drain on signal or on the first server error
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, draining...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.LogError(shutdownCtx, "API server shutdown failed", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.LogError(shutdownCtx, "metrics server shutdown failed", err)
			}
		}
		return nil
	})

	logger.Info("markets gateway started",
		"port", cfg.HTTP.Port,
		"cache_enabled", cfg.Cache.Enabled,
		"cache_capacity", cfg.Cache.Capacity,
	)

	if err := g.Wait(); err != nil {
		logger.LogError(context.Background(), "gateway exited with error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

// newMeterProvider builds the metric backends from config: Prometheus
// for the scrape endpoint, plus OTLP when tracing infrastructure is
// configured to receive it.
func newMeterProvider(cfg *config.Config) (observability.MeterProvider, error) {
	if !cfg.Observability.Metrics.Enabled {
		return observability.NewNoopMeterProvider(), nil
	}

	providers := []observability.MetricProviderConfig{
		{Type: observability.ProviderPrometheus},
	}
	if cfg.Observability.Tracing.Enabled {
		providers = append(providers, observability.MetricProviderConfig{
			Type:     observability.ProviderOTLP,
			Endpoint: cfg.Observability.Tracing.Endpoint,
			Insecure: true,
		})
	}

	return observability.NewMeterProvider(observability.MeterProviderConfig{
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
		Providers:   providers,
	})
}
