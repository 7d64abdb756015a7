package server

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/rendercache/config"
	"github.com/jonwraymond/rendercache/observe"
	"github.com/jonwraymond/rendercache/render"
	"github.com/jonwraymond/rendercache/resilience"
)

// buildEngine wraps base in the resilience chain and instrumentation.
func buildEngine(rc config.RenderConfig, base render.Engine, mw *observe.Middleware, logger observe.Logger) (render.Engine, *resilience.CircuitBreaker) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "render",
		MaxFailures:  rc.BreakerFailures,
		ResetTimeout: rc.BreakerReset,
		// A client hanging up says nothing about the engine.
		IsFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn(context.Background(), "render circuit changed state",
				observe.F("breaker", name),
				observe.F("from", from.String()),
				observe.F("to", to.String()))
		},
	})

	opts := []resilience.ExecutorOption{
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: rc.MaxConcurrent,
			MaxWait:       rc.Timeout,
		})),
		resilience.WithCircuitBreaker(breaker),
	}
	if rc.Timeout > 0 {
		opts = append(opts, resilience.WithTimeout(rc.Timeout))
	}
	if rc.Retries > 0 {
		opts = append(opts, resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  rc.Retries + 1,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				logger.Warn(context.Background(), "retrying render",
					observe.F("attempt", attempt),
					observe.F("delay_ms", delay.Milliseconds()),
					observe.F("error", err.Error()))
			},
		})))
	}

	guarded := render.Guarded(base, resilience.NewExecutor(opts...))
	return render.Instrument(guarded, mw), breaker
}
