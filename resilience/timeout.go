package resilience

import (
	"context"
	"errors"
	"time"
)

// TimeoutConfig bounds a single attempt. Zero means 30 seconds.
type TimeoutConfig struct {
	Timeout time.Duration
}

// Timeout gives each call its own deadline. The call has to watch ctx for
// the deadline to take effect.
type Timeout struct {
	config TimeoutConfig
}

func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Timeout{config: config}
}

// Execute maps a miss of this deadline to ErrTimeout. Cancellation of the
// caller's ctx is returned as is.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	err := op(attemptCtx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
