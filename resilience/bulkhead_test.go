package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBulkhead_Defaults(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})
	if m := b.Metrics(); m.MaxConcurrent != 16 || m.Available != 16 {
		t.Errorf("Metrics() = %+v, want 16 free slots", m)
	}
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	for i := 0; i < 2; i++ {
		if err := b.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() %d error = %v", i, err)
		}
	}

	called := false
	err := b.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Execute() error = %v, want ErrBulkheadFull", err)
	}
	if called {
		t.Error("render ran without a slot")
	}

	m := b.Metrics()
	if m.Active != 2 || m.Available != 0 || m.Rejected != 1 {
		t.Errorf("Metrics() = %+v", m)
	}

	b.Release()
	if err := b.Execute(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Errorf("Execute() after Release error = %v", err)
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Release()
	}()

	if err := b.Execute(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Errorf("Execute() error = %v, want a slot after release", err)
	}
}

func TestBulkhead_WaitBounded(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer b.Release()

	if err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Acquire() error = %v, want ErrBulkheadFull", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestBulkhead_CapsConcurrentRenders(t *testing.T) {
	const limit = 3
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: limit, MaxWait: time.Second})

	var (
		mu      sync.Mutex
		running int
		peak    int
		wg      sync.WaitGroup
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func(context.Context) error {
				mu.Lock()
				running++
				peak = max(peak, running)
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if peak > limit {
		t.Errorf("peak concurrency = %d, want <= %d", peak, limit)
	}
	if m := b.Metrics(); m.Active != 0 {
		t.Errorf("Active = %d after all renders finished", m.Active)
	}
}
