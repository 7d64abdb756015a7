package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Trigger names why a page was rendered.
type Trigger string

const (
	// TriggerRequest is a render for a visitor request that missed the cache.
	TriggerRequest Trigger = "request"
	// TriggerWarm is a render requested through the admin warm endpoint.
	TriggerWarm Trigger = "warm"
)

// PageMeta describes one page render for telemetry purposes.
type PageMeta struct {
	Key     string  // Normalized cache key (path + query)
	URL     string  // Absolute URL handed to the render engine
	Trigger Trigger // Why the render happened
}

// SpanName returns the span name for a render.
// Format: ssr.render or ssr.render.<trigger>
func (m PageMeta) SpanName() string {
	if m.Trigger == "" {
		return "ssr.render"
	}
	return "ssr.render." + string(m.Trigger)
}

func (m PageMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("ssr.key", m.Key),
	}
	if m.URL != "" {
		attrs = append(attrs, attribute.String("url.full", m.URL))
	}
	if m.Trigger != "" {
		attrs = append(attrs, attribute.String("ssr.trigger", string(m.Trigger)))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with render-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a page render.
	StartSpan(ctx context.Context, meta PageMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with page metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta PageMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("ssr.error", false))

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("ssr.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer creates a tracer that records nothing.
func NewNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta PageMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
