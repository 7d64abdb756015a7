package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig sets the token bucket. Zero values pick 100 tokens per
// second, a burst of 10 and a one second wait ceiling.
type RateLimiterConfig struct {
	Rate  float64 // tokens per second
	Burst int

	// WaitOnLimit makes Execute block for a token instead of failing fast.
	WaitOnLimit bool
	MaxWait     time.Duration
}

// RateLimiter paces warms and outbound invalidations with a token bucket.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow takes a token if one is free.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Wait blocks for a token. It gives up with ErrRateLimitExceeded once
// MaxWait would be exceeded, or with ctx's error when ctx ends first.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	bounded, cancel := context.WithTimeout(ctx, rl.config.MaxWait)
	defer cancel()

	err := rl.limiter.Wait(bounded)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return ErrRateLimitExceeded
	}
}

func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if !rl.config.WaitOnLimit {
		if !rl.Allow() {
			return ErrRateLimitExceeded
		}
		return op(ctx)
	}
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// Tokens reports the tokens left in the bucket right now.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}
