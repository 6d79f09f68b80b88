package cache

import (
	"context"
	"time"

	"github.com/jshsmth/glitch-markets-sub000/internal/platform/observability"
	"github.com/jshsmth/glitch-markets-sub000/internal/platform/worker"
)

// WarmupProvider is implemented by services that can pre-populate the
// cache with the responses they expect to serve first.
type WarmupProvider interface {
	// Name returns a human-readable name for logging purposes
	Name() string

	// Warmup fetches initial data through the normal read path.
	// It should be idempotent and safe to call multiple times.
	Warmup(ctx context.Context) error
}

// WarmupConfig configures the cache warming behavior.
type WarmupConfig struct {
	// Timeout is the maximum duration to wait for all providers to complete
	Timeout time.Duration

	// Concurrency is how many providers warm at once
	Concurrency int

	// ContinueOnError determines whether to continue warming if a provider fails
	ContinueOnError bool
}

// DefaultWarmupConfig returns sensible defaults for cache warming.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Timeout:         30 * time.Second,
		Concurrency:     4,
		ContinueOnError: true,
	}
}

// WarmupResult contains the result of warming a single provider.
type WarmupResult struct {
	Provider string
	Duration time.Duration
	Err      error
}

// WarmupResults contains the aggregate results of cache warming.
type WarmupResults struct {
	Results   []WarmupResult
	TotalTime time.Duration
	Errors    int
}

// HasErrors returns true if any provider failed during warmup.
func (wr *WarmupResults) HasErrors() bool {
	return wr.Errors > 0
}

// Warmer runs registered warmup providers through a bounded worker pool.
type Warmer struct {
	providers []WarmupProvider
	logger    *observability.Logger
	pool      *worker.Pool
	config    WarmupConfig
}

// NewWarmer creates a new cache warmer.
func NewWarmer(logger *observability.Logger, config WarmupConfig) *Warmer {
	defaults := DefaultWarmupConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}

	return &Warmer{
		providers: make([]WarmupProvider, 0),
		logger:    logger,
		pool: worker.New(worker.Config{
			Limit:       config.Concurrency,
			StopOnError: !config.ContinueOnError,
		}),
		config: config,
	}
}

// RegisterProvider adds a warmup provider to the warmer.
func (w *Warmer) RegisterProvider(provider WarmupProvider) {
	w.providers = append(w.providers, provider)
}

// Warmup executes all registered warmup providers.
// Returns aggregate results including timing and errors.
func (w *Warmer) Warmup(ctx context.Context) *WarmupResults {
	start := time.Now()
	results := &WarmupResults{
		Results: make([]WarmupResult, 0, len(w.providers)),
	}

	if len(w.providers) == 0 {
		results.TotalTime = time.Since(start)
		return results
	}

	warmupCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	tasks := make([]worker.Task, len(w.providers))
	for i, provider := range w.providers {
		tasks[i] = worker.Task{
			Name: provider.Name(),
			Run: func(ctx context.Context) error {
				w.logger.LogDebug(ctx, "Warming cache", "provider", provider.Name())
				return provider.Warmup(ctx)
			},
		}
	}

	for _, r := range w.pool.Run(warmupCtx, tasks) {
		if r.Err != nil {
			results.Errors++
			w.logger.LogWarn(ctx, "Cache warmup failed",
				"provider", r.Name, "error", r.Err, "duration", r.Duration)
		} else {
			w.logger.LogDebug(ctx, "Cache warmup completed for provider",
				"provider", r.Name, "duration", r.Duration)
		}
		results.Results = append(results.Results, WarmupResult{
			Provider: r.Name,
			Duration: r.Duration,
			Err:      r.Err,
		})
	}

	results.TotalTime = time.Since(start)

	if results.Errors > 0 {
		w.logger.LogWarn(ctx, "Cache warmup completed with errors",
			"failed", results.Errors, "providers", len(w.providers), "duration", results.TotalTime)
	} else {
		w.logger.LogInfo(ctx, "Cache warmup completed",
			"providers", len(w.providers), "duration", results.TotalTime)
	}

	return results
}
