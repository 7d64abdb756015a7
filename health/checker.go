package health

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Status is the health of one component. Larger is worse, so the status of
// a set of checks is their maximum.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	i := slices.Index(statusNames[:], string(text))
	if i < 0 {
		return fmt.Errorf("health: unknown status %q", text)
	}
	*s = Status(i)
	return nil
}

// Worst returns the highest status in results, or StatusHealthy for none.
func Worst(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		worst = max(worst, r.Status)
	}
	return worst
}

// Result is the outcome of one check. Duration and CheckedAt are filled in
// by the Aggregator.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Err       error
	Duration  time.Duration
	CheckedAt time.Time
}

// Healthy returns a healthy result.
func Healthy(message string, details map[string]any) Result {
	return Result{Status: StatusHealthy, Message: message, Details: details}
}

// Degraded returns a result for a component that still serves but will
// soon stop doing so well.
func Degraded(message string, details map[string]any) Result {
	return Result{Status: StatusDegraded, Message: message, Details: details}
}

// Unhealthy returns a result for a component that cannot serve.
func Unhealthy(message string, err error, details map[string]any) Result {
	return Result{Status: StatusUnhealthy, Message: message, Err: err, Details: details}
}

// Checker reports the health of one component.
//
// Contract:
// - Concurrency: Check may be called from several goroutines at once.
// - Context: Check should return once ctx is done; the Aggregator stops
//   waiting either way.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// Func adapts fn to a Checker called name.
func Func(name string, fn func(context.Context) Result) Checker {
	return funcChecker{name: name, fn: fn}
}

type funcChecker struct {
	name string
	fn   func(context.Context) Result
}

func (f funcChecker) Name() string                     { return f.name }
func (f funcChecker) Check(ctx context.Context) Result { return f.fn(ctx) }
