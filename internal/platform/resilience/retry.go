package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns the stock retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      0.2,
	}
}

// Retry runs fn with exponential backoff. retryable decides which
// errors are worth another attempt; nil retries everything. The last
// error is returned as-is so callers can still type-inspect it.
func Retry(ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func(context.Context) error) error {
	_, err := RetryWithResult(ctx, cfg, retryable, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryWithResult runs fn with exponential backoff and returns its
// value. Non-retryable errors and the final failed attempt return the
// error unwrapped.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(backoffDelay(attempt, cfg)):
		case <-ctx.Done():
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// backoffDelay computes baseDelay * 2^attempt capped at MaxDelay,
// randomized by ±Jitter.
func backoffDelay(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))

	if max := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && delay > max {
		delay = max
	}

	if cfg.Jitter > 0 {
		spread := delay * cfg.Jitter
		delay = delay - spread + rand.Float64()*spread*2
	}

	return time.Duration(delay)
}
