package observe

import (
	"context"
	"time"
)

// RenderFunc is the signature Middleware wraps.
type RenderFunc func(ctx context.Context, page PageMeta) ([]byte, error)

// Middleware wraps page rendering with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe RenderFunc.
//   - Context: the span is carried in the ctx passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps a RenderFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn RenderFunc) RenderFunc {
	return func(ctx context.Context, page PageMeta) ([]byte, error) {
		ctx, span := m.tracer.StartSpan(ctx, page)
		start := time.Now()

		html, err := fn(ctx, page)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordRender(ctx, page, duration, err)

		fields := []Field{
			F("key", page.Key),
			F("trigger", string(page.Trigger)),
			F("duration_ms", float64(duration.Milliseconds())),
		}
		if err != nil {
			fields = append(fields, F("error", err))
			m.logger.Error(ctx, "render failed", fields...)
		} else {
			fields = append(fields, F("bytes", len(html)))
			m.logger.Debug(ctx, "render completed", fields...)
		}

		return html, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
