package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records render metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRender records one render with its duration and error status.
	RecordRender(ctx context.Context, meta PageMeta, duration time.Duration, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the ssr.render.* instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"ssr.render.total",
		metric.WithDescription("Total number of page renders"),
		metric.WithUnit("{render}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"ssr.render.errors",
		metric.WithDescription("Total number of failed page renders"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"ssr.render.duration_ms",
		metric.WithDescription("Page render duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

// RecordRender records metrics for a page render. Keys are high-cardinality
// so only the trigger is used as an attribute.
func (m *metricsImpl) RecordRender(ctx context.Context, meta PageMeta, duration time.Duration, err error) {
	trigger := meta.Trigger
	if trigger == "" {
		trigger = TriggerRequest
	}
	opt := metric.WithAttributes(attribute.String("ssr.trigger", string(trigger)))

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// CacheSnapshot is a point-in-time view of cache size and counters.
type CacheSnapshot struct {
	Entries    int64
	TotalBytes int64
	Hits       int64
	Misses     int64
	Evictions  int64
}

// RegisterCacheMetrics registers observable instruments that read snapshot
// on every collection: ssr.cache.entries and ssr.cache.bytes gauges, and
// ssr.cache.hits, ssr.cache.misses and ssr.cache.evictions counters.
func RegisterCacheMetrics(meter metric.Meter, snapshot func() CacheSnapshot) (metric.Registration, error) {
	entries, err := meter.Int64ObservableGauge("ssr.cache.entries",
		metric.WithDescription("Pages currently cached"),
		metric.WithUnit("{page}"))
	if err != nil {
		return nil, err
	}
	bytes, err := meter.Int64ObservableGauge("ssr.cache.bytes",
		metric.WithDescription("Total bytes of cached HTML"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	hits, err := meter.Int64ObservableCounter("ssr.cache.hits",
		metric.WithDescription("Cache lookups served from the cache"))
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64ObservableCounter("ssr.cache.misses",
		metric.WithDescription("Cache lookups that required a render"))
	if err != nil {
		return nil, err
	}
	evictions, err := meter.Int64ObservableCounter("ssr.cache.evictions",
		metric.WithDescription("Entries dropped to honor the cache limits"))
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := snapshot()
		o.ObserveInt64(entries, s.Entries)
		o.ObserveInt64(bytes, s.TotalBytes)
		o.ObserveInt64(hits, s.Hits)
		o.ObserveInt64(misses, s.Misses)
		o.ObserveInt64(evictions, s.Evictions)
		return nil
	}, entries, bytes, hits, misses, evictions)
}

type noopMetrics struct{}

// NewNoopMetrics returns Metrics that records nothing.
func NewNoopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) RecordRender(context.Context, PageMeta, time.Duration, error) {}
