package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds one Run, including checks that ignore ctx.
	// Default: 5 seconds
	Timeout time.Duration

	// Concurrency caps the checks running at once. Zero means no cap.
	Concurrency int
}

// Report is the outcome of one Run.
type Report struct {
	Status Status
	Checks map[string]Result
}

// Aggregator runs a set of checkers together. Checkers are keyed by Name.
type Aggregator struct {
	config   AggregatorConfig
	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates an empty Aggregator.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Aggregator{config: config}
}

// Register adds checkers. One with the name of an existing checker
// replaces it in place.
func (a *Aggregator) Register(checkers ...Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range checkers {
		if i := a.indexLocked(c.Name()); i >= 0 {
			a.checkers[i] = c
			continue
		}
		a.checkers = append(a.checkers, c)
	}
}

// Unregister removes the checker called name.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i := a.indexLocked(name); i >= 0 {
		a.checkers = slices.Delete(a.checkers, i, i+1)
	}
}

// Names returns the registered names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

func (a *Aggregator) indexLocked(name string) int {
	return slices.IndexFunc(a.checkers, func(c Checker) bool { return c.Name() == name })
}

// Check runs the checker called name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	i := a.indexLocked(name)
	var c Checker
	if i >= 0 {
		c = a.checkers[i]
	}
	a.mu.RUnlock()

	if c == nil {
		return Result{}, ErrCheckerNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return runCheck(ctx, c), nil
}

// Run runs every checker concurrently and reports the worst status.
func (a *Aggregator) Run(ctx context.Context) Report {
	a.mu.RLock()
	checkers := slices.Clone(a.checkers)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make([]Result, len(checkers))
	var g errgroup.Group
	if a.config.Concurrency > 0 {
		g.SetLimit(a.config.Concurrency)
	}
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = runCheck(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Checks: make(map[string]Result, len(checkers))}
	for i, c := range checkers {
		report.Checks[c.Name()] = results[i]
	}
	report.Status = Worst(report.Checks)
	return report
}

// runCheck stops waiting at ctx's deadline even if the checker does not.
func runCheck(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		done <- c.Check(ctx)
	}()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimeout, nil)
	}
	r.Duration = time.Since(start)
	r.CheckedAt = start
	return r
}
