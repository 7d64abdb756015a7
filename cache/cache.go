package cache

// Cache is the interface for storing rendered HTML by normalized key.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use. Get
//   promotes recency, so it mutates shared state like Set does.
// - Errors: operations are total; a miss is reported by Get's bool result.
// - Ownership: callers must not modify a slice returned by Get.
type Cache interface {
	// Get returns the cached HTML and promotes the entry. Returns (nil, false) on miss.
	Get(key string) ([]byte, bool)

	// Set stores html under key, replacing any previous entry, then evicts.
	Set(key string, html []byte)

	// Delete removes key. Returns true if an entry was removed.
	Delete(key string) bool

	// Clear removes every entry.
	Clear()

	// Keys returns a snapshot of the stored keys.
	Keys() []string

	// Stats returns the current size and limits.
	Stats() Stats
}

// Stats is a read-only view of the cache's live state.
type Stats struct {
	Entries    int   `json:"entries"`
	TotalBytes int64 `json:"totalBytes"`
	MaxEntries int   `json:"maxEntries"`
	MaxBytes   int64 `json:"maxBytes"`
}

// Counters are monotonic lookup and eviction totals since construction.
type Counters struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Limits bounds the cache. An entry is evicted once either bound is exceeded.
type Limits struct {
	// MaxEntries is the maximum number of stored pages.
	// Default: 500
	MaxEntries int

	// MaxBytes is the maximum total HTML size in bytes.
	// Default: 50 MiB
	MaxBytes int64
}

// DefaultLimits returns the default cache bounds.
// MaxEntries: 500, MaxBytes: 50 MiB
func DefaultLimits() Limits {
	return Limits{
		MaxEntries: 500,
		MaxBytes:   50 * 1024 * 1024,
	}
}

// clamp turns negative bounds into zero, which means "store nothing".
func (l Limits) clamp() Limits {
	if l.MaxEntries < 0 {
		l.MaxEntries = 0
	}
	if l.MaxBytes < 0 {
		l.MaxBytes = 0
	}
	return l
}
