// Package resilience guards calls to the render engine and to remote admin
// endpoints.
//
// # Patterns
//
//   - Circuit Breaker: stops calling a failing dependency after consecutive
//     failures and probes it again after a reset timeout (sony/gobreaker).
//
//   - Retry: retries failed operations with exponential or constant backoff
//     (cenkalti/backoff).
//
//   - Rate Limiter: paces operations with a token bucket (x/time/rate).
//
//   - Bulkhead: caps concurrent operations (x/sync/semaphore).
//
//   - Timeout: bounds each operation with a context deadline.
//
// # Usage
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    Name:         "render",
//	    MaxFailures:  5,
//	    ResetTimeout: time.Minute,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 16})),
//	    resilience.WithTimeout(30*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return renderPage(ctx)
//	})
package resilience
