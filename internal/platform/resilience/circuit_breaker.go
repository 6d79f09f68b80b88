// Package resilience provides the retry, circuit-breaker, and rate
// limiting primitives the upstream client is wrapped in.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents circuit breaker state.
type State int

const (
	// StateClosed allows all requests
	StateClosed State = iota
	// StateOpen rejects all requests
	StateOpen
	// StateHalfOpen allows limited requests to test recovery
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // Consecutive failures before opening
	SuccessThreshold int           // Successes in half-open before closing
	Timeout          time.Duration // Open duration before probing half-open
	OnStateChange    func(from, to State)

	// IsFailure classifies which errors count toward opening the
	// circuit. Defaults to everything except context cancellation.
	// The upstream client narrows this further so expected 4xx
	// answers never open the circuit.
	IsFailure func(error) bool
}

// CircuitBreaker guards the upstream host against hammering a
// degraded dependency.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	isFailure        func(error) bool

	state         State
	failures      int
	successes     int
	lastFailTime  time.Time
	mu            sync.RWMutex
	onStateChange func(from, to State)
}

// NewCircuitBreaker creates a circuit breaker with defaults applied.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
	}

	return &CircuitBreaker{
		name:             cfg.Name,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.Timeout,
		isFailure:        cfg.IsFailure,
		state:            StateClosed,
		onStateChange:    cfg.OnStateChange,
	}
}

// Execute runs fn through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterRequest(err)

	return err
}

// ExecuteWithResult runs fn returning a value through the breaker.
// Standalone function because Go has no generic methods.
func ExecuteWithResult[T any](cb *CircuitBreaker, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := cb.beforeRequest(); err != nil {
		return zero, err
	}

	res, err := fn(ctx)
	cb.afterRequest(err)

	return res, err
}

// beforeRequest decides whether the call may proceed.
func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(cb.lastFailTime) > cb.timeout {
			cb.setState(StateHalfOpen)
			return nil
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		return nil

	default:
		return ErrCircuitOpen
	}
}

// afterRequest records the outcome of a call.
func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		if !cb.isFailure(err) {
			return
		}

		cb.failures++
		cb.successes = 0
		cb.lastFailTime = time.Now()

		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.failureThreshold {
				cb.setState(StateOpen)
			}
		case StateHalfOpen:
			cb.setState(StateOpen)
		}
		return
	}

	cb.successes++

	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		if cb.successes >= cb.successThreshold {
			cb.setState(StateClosed)
			cb.failures = 0
		}
	}
}

// setState transitions to a new state. Caller must hold the lock.
func (cb *CircuitBreaker) setState(newState State) {
	oldState := cb.state
	cb.state = newState

	if cb.onStateChange != nil {
		cb.onStateChange(oldState, newState)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// StateInt returns the current state as an int64 for metrics.
func (cb *CircuitBreaker) StateInt() int64 {
	return int64(cb.State())
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Reset manually closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateClosed)
	cb.failures = 0
	cb.successes = 0
}

// ForceOpen manually opens the circuit.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateOpen)
	cb.lastFailTime = time.Now()
}

// Stats returns the state and counters.
func (cb *CircuitBreaker) Stats() (state State, failures, successes int) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state, cb.failures, cb.successes
}
