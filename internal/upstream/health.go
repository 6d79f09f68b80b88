package upstream

import "time"

// ProviderHealth represents the current health state of the upstream API
// client. It is used by the readiness endpoint to decide whether the
// gateway should receive traffic.
type ProviderHealth struct {
	// Provider is the name of the upstream host (e.g., "core-api")
	Provider string

	// LastSuccess is the timestamp of the last successful API call
	LastSuccess time.Time

	// LastFailure is the timestamp of the last failed API call
	LastFailure time.Time

	// LastError contains the error message from the last failure, if any
	LastError string

	// LastDuration is the latency of the last API call
	LastDuration time.Duration

	// ConsecutiveFailures is the count of consecutive failed API calls
	ConsecutiveFailures int

	// CircuitState is the current state of the circuit breaker (Closed, Open, HalfOpen)
	CircuitState string
}

// HealthProvider defines the interface for clients that expose health status.
// Implementations should track success/failure metrics for their external
// API calls.
//
// Health status is used by:
//   - /healthz endpoint to report overall system health
//   - /readyz endpoint to determine readiness for traffic
//   - Monitoring dashboards to visualize upstream availability
type HealthProvider interface {
	// Health returns the current health status of the client.
	// This method should be thread-safe and non-blocking.
	Health() ProviderHealth
}
