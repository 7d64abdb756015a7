package health

import (
	"context"

	"github.com/jonwraymond/rendercache/resilience"
)

// BreakerChecker reports the state of the render engine circuit breaker.
type BreakerChecker struct {
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker for cb.
func NewBreakerChecker(cb *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{breaker: cb}
}

// Name returns "render".
func (b *BreakerChecker) Name() string {
	return "render"
}

// Check is unhealthy while the circuit is open and degraded while it probes.
func (b *BreakerChecker) Check(_ context.Context) Result {
	m := b.breaker.Metrics()
	details := map[string]any{
		"breaker":             b.breaker.Name(),
		"state":               m.State.String(),
		"consecutiveFailures": m.ConsecutiveFailures,
	}

	switch m.State {
	case resilience.StateOpen:
		return Unhealthy("render engine circuit open", resilience.ErrCircuitOpen, details)
	case resilience.StateHalfOpen:
		return Degraded("render engine circuit half-open", details)
	default:
		return Healthy("render engine reachable", details)
	}
}
