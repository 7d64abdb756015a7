package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffStrategy picks how the delay between attempts grows.
type BackoffStrategy int

const (
	BackoffExponential BackoffStrategy = iota
	BackoffConstant
)

// RetryConfig tunes Retry. MaxAttempts counts the first call, so the
// default of 4 means three retries. Delays start at InitialDelay (1s),
// grow by Multiplier (2) and stop growing at MaxDelay (30s).
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Strategy     BackoffStrategy

	// Jitter spreads each delay by up to 25%.
	Jitter bool

	// RetryIf reports whether err is worth another attempt. The default
	// gives up on ErrCircuitOpen and context.Canceled.
	RetryIf func(err error) bool

	// OnRetry runs before each sleep with the attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs a failed render or admin call with backoff.
type Retry struct {
	config RetryConfig
}

func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 4
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = defaultRetryIf
	}

	return &Retry{config: config}
}

func defaultRetryIf(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrCircuitOpen) &&
		!errors.Is(err, context.Canceled)
}

// Execute runs the operation, retrying until it succeeds, RetryIf rejects
// the error, attempts run out, or ctx is done. The last error is returned.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	// WithMaxRetries treats zero as unlimited.
	if r.config.MaxAttempts == 1 {
		return op(ctx)
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err != nil && !r.config.RetryIf(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(r.newBackOff(), uint64(r.config.MaxAttempts-1)),
		ctx,
	)
	return backoff.RetryNotify(operation, b, notify)
}

func (r *Retry) newBackOff() backoff.BackOff {
	if r.config.Strategy == BackoffConstant {
		return backoff.NewConstantBackOff(r.config.InitialDelay)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.config.InitialDelay
	eb.MaxInterval = r.config.MaxDelay
	eb.Multiplier = r.config.Multiplier
	eb.MaxElapsedTime = 0
	eb.RandomizationFactor = 0
	if r.config.Jitter {
		eb.RandomizationFactor = 0.25
	}
	eb.Reset()
	return eb
}

func (r *Retry) Config() RetryConfig {
	return r.config
}
