package health

import (
	"context"
	"testing"

	"github.com/jonwraymond/rendercache/cache"
)

type fixedStats cache.Stats

func (f fixedStats) Stats() cache.Stats { return cache.Stats(f) }

func TestCacheChecker(t *testing.T) {
	tests := []struct {
		name  string
		stats cache.Stats
		want  Status
	}{
		{
			name:  "empty",
			stats: cache.Stats{MaxEntries: 500, MaxBytes: 1000},
			want:  StatusHealthy,
		},
		{
			name:  "exactly at threshold",
			stats: cache.Stats{Entries: 450, TotalBytes: 900, MaxEntries: 500, MaxBytes: 1000},
			want:  StatusHealthy,
		},
		{
			name:  "entries above threshold",
			stats: cache.Stats{Entries: 451, TotalBytes: 10, MaxEntries: 500, MaxBytes: 1000},
			want:  StatusDegraded,
		},
		{
			name:  "bytes above threshold",
			stats: cache.Stats{Entries: 1, TotalBytes: 901, MaxEntries: 500, MaxBytes: 1000},
			want:  StatusDegraded,
		},
		{
			name:  "zero max entries",
			stats: cache.Stats{MaxEntries: 0, MaxBytes: 1000},
			want:  StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCacheChecker(fixedStats(tt.stats), 0)
			result := c.Check(context.Background())
			if result.Status != tt.want {
				t.Errorf("Status = %v (%s), want %v", result.Status, result.Message, tt.want)
			}
			if result.Details["maxEntries"] != tt.stats.MaxEntries {
				t.Errorf("Details[maxEntries] = %v", result.Details["maxEntries"])
			}
		})
	}
}

func TestCacheChecker_LiveCache(t *testing.T) {
	c := cache.NewMemoryCache(cache.Limits{MaxEntries: 10, MaxBytes: 1 << 20})
	checker := NewCacheChecker(c, 0.5)

	for i := range 6 {
		c.Set(string(rune('a'+i)), []byte("<html/>"))
	}

	if got := checker.Check(context.Background()).Status; got != StatusDegraded {
		t.Errorf("Status = %v, want degraded at 60%% with threshold 50%%", got)
	}
}
