package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// syncBuffer guards bytes.Buffer for loggers used from several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func newTestLogger(t *testing.T, level string) (*ZapLogger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	l, err := NewLoggerWithWriter(level, buf)
	if err != nil {
		t.Fatalf("NewLoggerWithWriter() error: %v", err)
	}
	return l, buf
}

func TestLogger_JSONShape(t *testing.T) {
	l, buf := newTestLogger(t, "info")
	l.Info(context.Background(), "cache purged", F("path", "/acme"), F("deleted", true))

	entries := buf.lines(t)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	for _, key := range []string{"timestamp", "level", "msg"} {
		if _, ok := e[key]; !ok {
			t.Errorf("entry missing %q: %v", key, e)
		}
	}
	if e["msg"] != "cache purged" || e["level"] != "info" {
		t.Errorf("unexpected entry: %v", e)
	}
	if e["path"] != "/acme" || e["deleted"] != true {
		t.Errorf("fields not written: %v", e)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	l, buf := newTestLogger(t, "warn")
	ctx := context.Background()

	l.Debug(ctx, "debug")
	l.Info(ctx, "info")
	l.Warn(ctx, "warn")
	l.Error(ctx, "error")

	entries := buf.lines(t)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at warn level, got %d", len(entries))
	}
}

func TestLogger_SetLevel(t *testing.T) {
	l, buf := newTestLogger(t, "error")
	child := l.With(F("component", "gateway"))

	child.Info(context.Background(), "dropped")
	if err := l.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel() error: %v", err)
	}
	child.Debug(context.Background(), "kept")

	entries := buf.lines(t)
	if len(entries) != 1 || entries[0]["msg"] != "kept" {
		t.Fatalf("expected only the post-SetLevel entry, got %v", entries)
	}
	if entries[0]["component"] != "gateway" {
		t.Errorf("child fields missing: %v", entries[0])
	}
	if l.Level() != "debug" {
		t.Errorf("Level() = %q, want debug", l.Level())
	}

	if err := l.SetLevel("loud"); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("SetLevel(loud) error = %v, want ErrInvalidLogLevel", err)
	}
}

func TestLogger_Redaction(t *testing.T) {
	l, buf := newTestLogger(t, "info")
	l.With(F("admin_key", "s3cret")).Info(context.Background(), "request",
		F("token", "abc"),
		F("path", "/acme"),
	)

	raw := buf.buf.String()
	if strings.Contains(raw, "s3cret") || strings.Contains(raw, "abc") {
		t.Fatalf("secret leaked into log output: %s", raw)
	}
	e := buf.lines(t)[0]
	if e["admin_key"] != "[REDACTED]" || e["token"] != "[REDACTED]" {
		t.Errorf("expected redacted values, got %v", e)
	}
	if e["path"] != "/acme" {
		t.Errorf("non-sensitive field altered: %v", e)
	}
}

func TestLogger_ErrorField(t *testing.T) {
	l, buf := newTestLogger(t, "info")
	l.Error(context.Background(), "render failed", F("error", errors.New("boom")))

	if got := buf.lines(t)[0]["error"]; got != "boom" {
		t.Errorf("error field = %v, want boom", got)
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	l, buf := newTestLogger(t, "info")
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	l.Info(ctx, "inside span")

	e := buf.lines(t)[0]
	if e["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", e["trace_id"], span.SpanContext().TraceID())
	}
	if _, ok := e["span_id"]; !ok {
		t.Error("span_id missing")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "info", false},
		{"debug", "debug", false},
		{"warn", "warn", false},
		{"error", "error", false},
		{"trace", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lvl, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && lvl.String() != tt.want {
				t.Errorf("ParseLogLevel(%q) = %s, want %s", tt.in, lvl, tt.want)
			}
		})
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "ignored")
	if l.With(F("k", "v")) == nil {
		t.Fatal("With should return non-nil logger")
	}
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}
