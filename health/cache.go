package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/rendercache/cache"
)

// DefaultCacheThreshold is the fill ratio above which the cache is degraded.
const DefaultCacheThreshold = 0.9

// StatsSource reports the live size of a cache.
type StatsSource interface {
	Stats() cache.Stats
}

// CacheChecker reports how full the render cache is.
type CacheChecker struct {
	source    StatsSource
	threshold float64
}

// NewCacheChecker creates a checker over source. A threshold outside (0, 1]
// selects DefaultCacheThreshold.
func NewCacheChecker(source StatsSource, threshold float64) *CacheChecker {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultCacheThreshold
	}
	return &CacheChecker{source: source, threshold: threshold}
}

// Name returns "cache".
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check reports degraded when either bound is above the threshold, or when
// a zero bound means nothing can be cached.
func (c *CacheChecker) Check(_ context.Context) Result {
	s := c.source.Stats()
	details := map[string]any{
		"entries":    s.Entries,
		"totalBytes": s.TotalBytes,
		"maxEntries": s.MaxEntries,
		"maxBytes":   s.MaxBytes,
	}

	if s.MaxEntries == 0 || s.MaxBytes == 0 {
		return Degraded("cache disabled by zero limit", details)
	}

	entryRatio := float64(s.Entries) / float64(s.MaxEntries)
	byteRatio := float64(s.TotalBytes) / float64(s.MaxBytes)
	details["entriesPercent"] = entryRatio * 100
	details["bytesPercent"] = byteRatio * 100

	if entryRatio > c.threshold || byteRatio > c.threshold {
		return Degraded(fmt.Sprintf("cache near capacity: %.1f%% entries, %.1f%% bytes",
			entryRatio*100, byteRatio*100), details)
	}
	return Healthy(fmt.Sprintf("%d entries cached", s.Entries), details)
}
