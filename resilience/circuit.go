package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
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

// CircuitBreakerConfig tunes CircuitBreaker. Zero values mean 5 consecutive
// failures to open, a one minute reset timeout and a single half-open probe.
type CircuitBreakerConfig struct {
	Name                string
	MaxFailures         int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int

	OnStateChange func(name string, from, to State)

	// IsFailure decides which errors count against the upstream. Nil counts
	// every non-nil error.
	IsFailure func(err error) bool
}

// CircuitBreaker stops calling the render upstream after MaxFailures
// consecutive failures. Once ResetTimeout passes, HalfOpenMaxRequests probes
// decide whether it closes again.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	cb     *gobreaker.CircuitBreaker[struct{}]
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	maxFailures := uint32(config.MaxFailures)
	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: uint32(config.HalfOpenMaxRequests),
		Timeout:     config.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return !config.IsFailure(err)
		},
	}
	if config.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			config.OnStateChange(name, fromBreakerState(from), fromBreakerState(to))
		}
	}

	return &CircuitBreaker{
		config: config,
		cb:     gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Execute runs op unless the breaker refuses, in which case op is not
// called and ErrCircuitOpen is returned.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := cb.cb.Execute(func() (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

func (cb *CircuitBreaker) State() State {
	return fromBreakerState(cb.cb.State())
}

func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	counts := cb.cb.Counts()
	return CircuitBreakerMetrics{
		State:               cb.State(),
		Requests:            counts.Requests,
		ConsecutiveFailures: counts.ConsecutiveFailures,
		TotalFailures:       counts.TotalFailures,
		TotalSuccesses:      counts.TotalSuccesses,
	}
}

// CircuitBreakerMetrics holds the counts since the last state change.
type CircuitBreakerMetrics struct {
	State               State
	Requests            uint32
	ConsecutiveFailures uint32
	TotalFailures       uint32
	TotalSuccesses      uint32
}

func fromBreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
