package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket. The rate can be adjusted at runtime,
// which the adaptive limiter uses to back off under upstream
// pressure.
type RateLimiter struct {
	rate       float64 // tokens per second
	burst      int
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a token bucket that starts full.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if rate <= 0 {
		rate = 10
	}
	if burst <= 0 {
		burst = int(rate)
		if burst < 1 {
			burst = 1
		}
	}

	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// NewRateLimiterFromRPM creates a limiter from requests per minute.
func NewRateLimiterFromRPM(requestsPerMinute int, burst int) *RateLimiter {
	return NewRateLimiter(float64(requestsPerMinute)/60.0, burst)
}

// Allow reports whether a request may proceed without blocking.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

// Wait blocks until a token is available or the context ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Allow() {
			return nil
		}

		select {
		case <-time.After(rl.nextTokenDelay()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// refill adds tokens for the elapsed interval. Caller must hold the
// lock.
func (rl *RateLimiter) refill() {
	now := time.Now()
	rl.tokens += now.Sub(rl.lastUpdate).Seconds() * rl.rate
	if rl.tokens > float64(rl.burst) {
		rl.tokens = float64(rl.burst)
	}
	rl.lastUpdate = now
}

// nextTokenDelay estimates the wait for one token, floored to avoid
// busy-waiting.
func (rl *RateLimiter) nextTokenDelay() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	needed := 1.0 - rl.tokens
	if needed < 0 {
		needed = 0
	}

	wait := time.Duration(needed / rl.rate * float64(time.Second))
	if wait < 10*time.Millisecond {
		wait = 10 * time.Millisecond
	}
	return wait
}

// SetRate changes the refill rate in tokens per second.
func (rl *RateLimiter) SetRate(rate float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.rate = rate
}

// Stats returns the rate, burst, and currently available tokens.
func (rl *RateLimiter) Stats() (rate float64, burst int, availableTokens float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return rl.rate, rl.burst, rl.tokens
}

// Reset restores a full bucket.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.tokens = float64(rl.burst)
	rl.lastUpdate = time.Now()
}
