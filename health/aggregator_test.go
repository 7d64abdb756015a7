package health

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func staticChecker(name string, r Result) Checker {
	return Func(name, func(context.Context) Result { return r })
}

func TestAggregator_Register(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(staticChecker("cache", Healthy("ok", nil)), staticChecker("render", Healthy("ok", nil)))
	agg.Register(staticChecker("cache", Degraded("full", nil)))

	if got := agg.Names(); !slices.Equal(got, []string{"cache", "render"}) {
		t.Errorf("Names() = %v, want [cache render]", got)
	}

	result, err := agg.Check(context.Background(), "cache")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Status != StatusDegraded {
		t.Errorf("replacement checker not used: %v", result.Status)
	}
	if result.CheckedAt.IsZero() {
		t.Error("CheckedAt should be set")
	}

	agg.Unregister("cache")
	agg.Unregister("missing")
	if got := agg.Names(); !slices.Equal(got, []string{"render"}) {
		t.Errorf("Names() after Unregister = %v", got)
	}
}

func TestAggregator_CheckNotFound(t *testing.T) {
	_, err := NewAggregator(AggregatorConfig{}).Check(context.Background(), "missing")
	if !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_RunEmpty(t *testing.T) {
	report := NewAggregator(AggregatorConfig{}).Run(context.Background())
	if report.Status != StatusHealthy || len(report.Checks) != 0 {
		t.Errorf("Run() = %+v, want healthy with no checks", report)
	}
}

func TestAggregator_RunTimesOut(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	release := make(chan struct{})
	defer close(release)

	agg.Register(
		Func("stuck", func(context.Context) Result {
			<-release
			return Healthy("late", nil)
		}),
		staticChecker("cache", Healthy("ok", nil)),
	)

	report := agg.Run(context.Background())
	if !errors.Is(report.Checks["stuck"].Err, ErrCheckTimeout) {
		t.Errorf("stuck result = %+v, want ErrCheckTimeout", report.Checks["stuck"])
	}
	if report.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", report.Status)
	}
	if report.Checks["cache"].Status != StatusHealthy {
		t.Errorf("cache result = %+v", report.Checks["cache"])
	}
}

func TestAggregator_ConcurrencyLimit(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Concurrency: 1})
	var running, peak atomic.Int32

	for _, name := range []string{"a", "b", "c", "d"} {
		agg.Register(Func(name, func(context.Context) Result {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			return Healthy("ok", nil)
		}))
	}

	report := agg.Run(context.Background())
	if len(report.Checks) != 4 {
		t.Fatalf("len(Checks) = %d, want 4", len(report.Checks))
	}
	if got := peak.Load(); got != 1 {
		t.Errorf("peak concurrency = %d, want 1", got)
	}
}
