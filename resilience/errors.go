package resilience

import "errors"

var (
	// ErrCircuitOpen means the breaker refused the call without running it.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull means no render slot freed up within MaxWait.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout means the per-attempt deadline passed.
	ErrTimeout = errors.New("resilience: operation timed out")
)
