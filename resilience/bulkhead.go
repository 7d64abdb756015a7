package resilience

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig bounds how many renders run at once. MaxConcurrent
// defaults to 16. With MaxWait zero a caller that finds every slot taken
// fails at once.
type BulkheadConfig struct {
	MaxConcurrent int
	MaxWait       time.Duration
}

// Bulkhead is a counting semaphore with rejection accounting.
type Bulkhead struct {
	config BulkheadConfig
	sem    *semaphore.Weighted

	inFlight atomic.Int64
	rejected atomic.Int64
}

func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 16
	}
	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
	}
}

// Acquire takes a slot. A caller that cannot get one within MaxWait gets
// ErrBulkheadFull; a caller whose ctx ends first gets ctx's error.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if !b.sem.TryAcquire(1) {
		if err := b.wait(ctx); err != nil {
			return err
		}
	}
	b.inFlight.Add(1)
	return nil
}

func (b *Bulkhead) wait(ctx context.Context) error {
	if b.config.MaxWait > 0 {
		bounded, cancel := context.WithTimeout(ctx, b.config.MaxWait)
		defer cancel()
		if b.sem.Acquire(bounded, 1) == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	b.rejected.Add(1)
	return ErrBulkheadFull
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	b.inFlight.Add(-1)
	b.sem.Release(1)
}

func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

// BulkheadMetrics is a point-in-time view of slot usage.
type BulkheadMetrics struct {
	Active        int
	Available     int
	MaxConcurrent int
	Rejected      int64
}

func (b *Bulkhead) Metrics() BulkheadMetrics {
	n := int(b.inFlight.Load())
	return BulkheadMetrics{
		Active:        n,
		Available:     b.config.MaxConcurrent - n,
		MaxConcurrent: b.config.MaxConcurrent,
		Rejected:      b.rejected.Load(),
	}
}
