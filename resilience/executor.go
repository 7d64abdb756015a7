package resilience

import (
	"context"
	"time"
)

type guard interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Executor stacks the guards a render or admin call passes through. From the
// outside in: rate limiter, bulkhead, retry, circuit breaker, timeout. Each
// retry attempt is therefore counted by the breaker and gets its own deadline,
// while the bulkhead slot is held across all attempts.
type Executor struct {
	limiter *RateLimiter
	slots   *Bulkhead
	retry   *Retry
	breaker *CircuitBreaker
	timeout *Timeout
}

// ExecutorOption adds a guard to an Executor.
type ExecutorOption func(*Executor)

// NewExecutor returns an Executor with the given guards. With none it simply
// calls the operation.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.limiter = rl }
}

func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.slots = b }
}

// WithTimeout bounds every attempt by d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(TimeoutConfig{Timeout: d}) }
}

// CircuitBreaker returns the breaker, or nil when none was configured. The
// health checks read its state.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.breaker
}

// Execute runs op through the configured guards.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	// Innermost first.
	for _, g := range e.layers() {
		run = wrap(g, run)
	}
	return run(ctx)
}

func (e *Executor) layers() []guard {
	var gs []guard
	if e.timeout != nil {
		gs = append(gs, e.timeout)
	}
	if e.breaker != nil {
		gs = append(gs, e.breaker)
	}
	if e.retry != nil {
		gs = append(gs, e.retry)
	}
	if e.slots != nil {
		gs = append(gs, e.slots)
	}
	if e.limiter != nil {
		gs = append(gs, e.limiter)
	}
	return gs
}

func wrap(g guard, next func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return g.Execute(ctx, next)
	}
}
