package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func spanFromContextValid(ctx context.Context) bool {
	return trace.SpanContextFromContext(ctx).IsValid()
}

func TestMiddleware_SuccessPath(t *testing.T) {
	tracer, spans := newRecordingTracer()
	reader, mp := newManualMeter()
	metrics, _ := NewMetrics(mp.Meter("test"))
	logger, buf := newTestLogger(t, "debug")

	mw := NewMiddleware(tracer, metrics, logger)
	meta := PageMeta{Key: "/acme", Trigger: TriggerRequest}

	wrapped := mw.Wrap(func(ctx context.Context, page PageMeta) ([]byte, error) {
		if page != meta {
			t.Errorf("page = %+v, want %+v", page, meta)
		}
		return []byte("<html>acme</html>"), nil
	})

	html, err := wrapped(context.Background(), meta)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if string(html) != "<html>acme</html>" {
		t.Errorf("html = %q", html)
	}

	if got := len(spans.Ended()); got != 1 {
		t.Fatalf("expected 1 span, got %d", got)
	}
	if got := spans.Ended()[0].Name(); got != "ssr.render.request" {
		t.Errorf("span name = %q", got)
	}
	if got := sumValue(t, collect(t, reader), "ssr.render.total"); got != 1 {
		t.Errorf("ssr.render.total = %d, want 1", got)
	}

	entries := buf.lines(t)
	if len(entries) != 1 || entries[0]["msg"] != "render completed" {
		t.Fatalf("unexpected log entries: %v", entries)
	}
	if entries[0]["bytes"] != float64(len(html)) {
		t.Errorf("bytes field = %v", entries[0]["bytes"])
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	tracer, spans := newRecordingTracer()
	reader, mp := newManualMeter()
	metrics, _ := NewMetrics(mp.Meter("test"))
	logger, buf := newTestLogger(t, "info")

	mw := NewMiddleware(tracer, metrics, logger)
	renderErr := errors.New("engine crashed")

	_, err := mw.Wrap(func(ctx context.Context, page PageMeta) ([]byte, error) {
		return nil, renderErr
	})(context.Background(), PageMeta{Key: "/broken"})

	if !errors.Is(err, renderErr) {
		t.Fatalf("error = %v, want %v", err, renderErr)
	}
	if len(spans.Ended()) != 1 {
		t.Fatal("expected the span to end on error")
	}
	if got := sumValue(t, collect(t, reader), "ssr.render.errors"); got != 1 {
		t.Errorf("ssr.render.errors = %d, want 1", got)
	}

	entries := buf.lines(t)
	if len(entries) != 1 || entries[0]["level"] != "error" {
		t.Fatalf("expected one error entry, got %v", entries)
	}
	if entries[0]["error"] != "engine crashed" || entries[0]["key"] != "/broken" {
		t.Errorf("unexpected fields: %v", entries[0])
	}
}

func TestMiddleware_SpanInContext(t *testing.T) {
	tracer, _ := newRecordingTracer()
	mw := NewMiddleware(tracer, NewNoopMetrics(), NopLogger())

	_, _ = mw.Wrap(func(ctx context.Context, page PageMeta) ([]byte, error) {
		if !spanFromContextValid(ctx) {
			t.Error("wrapped function should see the render span in ctx")
		}
		return nil, nil
	})(context.Background(), PageMeta{Key: "/"})
}

func TestMiddlewareFromObserver(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "ssrcache"})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}
	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver failed: %v", err)
	}
	if _, err := mw.Wrap(func(context.Context, PageMeta) ([]byte, error) {
		return []byte("ok"), nil
	})(context.Background(), PageMeta{Key: "/"}); err != nil {
		t.Errorf("wrapped render error = %v", err)
	}
}
