package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// AdaptiveLimiter wraps a RateLimiter and moves its rate with the
// upstream's mood: each 429 halves the rate (exponentially for
// repeated hits, floored at MinRate), a run of successes nudges it
// back up toward MaxRate.
type AdaptiveLimiter struct {
	limiter *RateLimiter

	baseRate       float64
	minRate        float64
	maxRate        float64
	backoffFactor  float64
	recoveryFactor float64
	recoveryWindow int

	currentRate         float64
	lastAdjustment      time.Time
	mu                  sync.RWMutex
	consecutiveSuccess  int64
	consecutiveFailures int64

	totalRequests int64
	rateLimitHits int64
	adaptations   int64
}

// AdaptiveLimiterConfig configures the adaptive limiter.
type AdaptiveLimiterConfig struct {
	BaseRate float64 // requests per second (default 1.0)
	MinRate  float64 // backoff floor (default 0.1)
	MaxRate  float64 // recovery ceiling (default 10.0)
	Burst    int     // bucket size (default 2x BaseRate)

	BackoffFactor  float64 // rate multiplier per consecutive 429 (default 0.5)
	RecoveryFactor float64 // rate multiplier on recovery (default 1.1)
	RecoveryWindow int     // consecutive successes per recovery step (default 10)
}

// NewAdaptiveLimiter creates an adaptive limiter with defaults applied.
func NewAdaptiveLimiter(cfg AdaptiveLimiterConfig) *AdaptiveLimiter {
	if cfg.BaseRate <= 0 {
		cfg.BaseRate = 1.0
	}
	if cfg.MinRate <= 0 {
		cfg.MinRate = 0.1
	}
	if cfg.MaxRate <= 0 {
		cfg.MaxRate = 10.0
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.BaseRate * 2)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.BackoffFactor <= 0 || cfg.BackoffFactor >= 1 {
		cfg.BackoffFactor = 0.5
	}
	if cfg.RecoveryFactor <= 1 {
		cfg.RecoveryFactor = 1.1
	}
	if cfg.RecoveryWindow <= 0 {
		cfg.RecoveryWindow = 10
	}
	if cfg.MinRate > cfg.BaseRate {
		cfg.MinRate = cfg.BaseRate
	}
	if cfg.MaxRate < cfg.BaseRate {
		cfg.MaxRate = cfg.BaseRate
	}

	return &AdaptiveLimiter{
		limiter:        NewRateLimiter(cfg.BaseRate, cfg.Burst),
		baseRate:       cfg.BaseRate,
		minRate:        cfg.MinRate,
		maxRate:        cfg.MaxRate,
		backoffFactor:  cfg.BackoffFactor,
		recoveryFactor: cfg.RecoveryFactor,
		recoveryWindow: cfg.RecoveryWindow,
		currentRate:    cfg.BaseRate,
		lastAdjustment: time.Now(),
	}
}

// NewAdaptiveLimiterFromRPM creates an adaptive limiter from
// requests-per-minute bounds.
func NewAdaptiveLimiterFromRPM(baseRPM, minRPM, maxRPM, burst int) *AdaptiveLimiter {
	return NewAdaptiveLimiter(AdaptiveLimiterConfig{
		BaseRate: float64(baseRPM) / 60.0,
		MinRate:  float64(minRPM) / 60.0,
		MaxRate:  float64(maxRPM) / 60.0,
		Burst:    burst,
	})
}

// Wait blocks until a token is available or the context ends.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	atomic.AddInt64(&a.totalRequests, 1)
	return a.limiter.Wait(ctx)
}

// RecordSuccess notes a successful upstream call. Enough consecutive
// successes raise the rate one step.
func (a *AdaptiveLimiter) RecordSuccess() {
	atomic.StoreInt64(&a.consecutiveFailures, 0)

	if int(atomic.AddInt64(&a.consecutiveSuccess, 1)) >= a.recoveryWindow {
		a.recover()
	}
}

// RecordRateLimitError notes an upstream 429 and backs off
// immediately.
func (a *AdaptiveLimiter) RecordRateLimitError() {
	atomic.AddInt64(&a.rateLimitHits, 1)
	atomic.StoreInt64(&a.consecutiveSuccess, 0)

	a.backoff(int(atomic.AddInt64(&a.consecutiveFailures, 1)))
}

// RecordError notes a non-429 failure. It breaks a recovery streak
// without lowering the rate.
func (a *AdaptiveLimiter) RecordError() {
	atomic.StoreInt64(&a.consecutiveSuccess, 0)
}

// backoff cuts the rate exponentially in the consecutive-hit count,
// capped so a burst of 429s cannot zero the limiter out.
func (a *AdaptiveLimiter) backoff(hits int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if hits > 5 {
		hits = 5
	}

	multiplier := 1.0
	for i := 0; i < hits; i++ {
		multiplier *= a.backoffFactor
	}

	newRate := a.currentRate * multiplier
	if newRate < a.minRate {
		newRate = a.minRate
	}

	a.applyRate(newRate)
}

// recover raises the rate one step, at most once per second.
func (a *AdaptiveLimiter) recover() {
	a.mu.Lock()
	defer a.mu.Unlock()

	atomic.StoreInt64(&a.consecutiveSuccess, 0)

	if a.currentRate >= a.maxRate || time.Since(a.lastAdjustment) < time.Second {
		return
	}

	newRate := a.currentRate * a.recoveryFactor
	if newRate > a.maxRate {
		newRate = a.maxRate
	}

	a.applyRate(newRate)
}

// applyRate commits a rate change. Caller must hold the lock.
func (a *AdaptiveLimiter) applyRate(rate float64) {
	if rate == a.currentRate {
		return
	}
	a.currentRate = rate
	a.limiter.SetRate(rate)
	a.lastAdjustment = time.Now()
	atomic.AddInt64(&a.adaptations, 1)
}

// Reset restores the base rate.
func (a *AdaptiveLimiter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.currentRate = a.baseRate
	a.limiter.SetRate(a.baseRate)
	atomic.StoreInt64(&a.consecutiveSuccess, 0)
	atomic.StoreInt64(&a.consecutiveFailures, 0)
	a.lastAdjustment = time.Now()
}

// CurrentRate returns the current rate in requests per second.
func (a *AdaptiveLimiter) CurrentRate() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentRate
}

// IsThrottled reports whether the limiter is running below base rate.
func (a *AdaptiveLimiter) IsThrottled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentRate < a.baseRate
}

// AdaptiveLimiterStats is a point-in-time snapshot for diagnostics.
type AdaptiveLimiterStats struct {
	CurrentRate   float64
	BaseRate      float64
	MinRate       float64
	MaxRate       float64
	TotalRequests int64
	RateLimitHits int64
	Adaptations   int64
}

// Stats returns a snapshot of the limiter.
func (a *AdaptiveLimiter) Stats() AdaptiveLimiterStats {
	a.mu.RLock()
	currentRate := a.currentRate
	a.mu.RUnlock()

	return AdaptiveLimiterStats{
		CurrentRate:   currentRate,
		BaseRate:      a.baseRate,
		MinRate:       a.minRate,
		MaxRate:       a.maxRate,
		TotalRequests: atomic.LoadInt64(&a.totalRequests),
		RateLimitHits: atomic.LoadInt64(&a.rateLimitHits),
		Adaptations:   atomic.LoadInt64(&a.adaptations),
	}
}
