package cache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// MemoryCache is an in-memory LRU cache bounded by entry count and total bytes.
//
// A single mutex guards every public operation, including Get, because a hit
// moves the entry to the most-recently-used end. Eviction runs inside the call
// that caused the overflow, so both bounds hold whenever no call is in progress.
//
// Setting MaxEntries to 0, or storing a page larger than MaxBytes on its own,
// leaves the cache empty after Set returns. That is a valid state, not an error.
type MemoryCache struct {
	mu         sync.Mutex
	lru        *simplelru.LRU[string, *entry]
	limits     Limits
	totalBytes int64
	counters   Counters
}

type entry struct {
	html []byte
	size int64
}

// NewMemoryCache creates a new in-memory cache with the given limits.
func NewMemoryCache(limits Limits) *MemoryCache {
	c := &MemoryCache{limits: limits.clamp()}

	// Every removal path (Remove, RemoveOldest, Purge, capacity overflow)
	// goes through the callback, which keeps totalBytes exact.
	lru, err := simplelru.NewLRU[string, *entry](lruCapacity(c.limits), func(_ string, e *entry) {
		c.totalBytes -= e.size
	})
	if err != nil {
		// lruCapacity never returns a non-positive size.
		panic(err)
	}
	c.lru = lru
	return c
}

// simplelru rejects a zero size, so MaxEntries=0 is enforced by evictLocked.
func lruCapacity(l Limits) int {
	if l.MaxEntries < 1 {
		return 1
	}
	return l.MaxEntries
}

// Get retrieves a page and marks it most recently used.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.counters.Misses++
		return nil, false
	}
	c.counters.Hits++
	return e.html, true
}

// Peek retrieves a page without touching recency or counters.
func (c *MemoryCache) Peek(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Peek(key)
	if !ok {
		return nil, false
	}
	return e.html, true
}

// Set stores a page. Its size is the byte length of html, computed once here.
func (c *MemoryCache) Set(key string, html []byte) {
	e := &entry{html: html, size: int64(len(html))}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing an entry does not fire the evict callback, so remove the
	// old size by hand before adding the new one.
	if old, ok := c.lru.Peek(key); ok {
		c.totalBytes -= old.size
	}
	if evicted := c.lru.Add(key, e); evicted {
		c.counters.Evictions++
	}
	c.totalBytes += e.size

	c.evictLocked()
}

// Delete removes a page. Returns false if key was not present.
func (c *MemoryCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// DeleteKeys removes every listed key under one lock and returns the keys
// that were actually present.
func (c *MemoryCache) DeleteKeys(keys []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteLocked(keys)
}

// DeleteResolved hands the current keys to resolve and deletes what it
// returns, holding the lock throughout so no Set lands between the listing
// and the delete. resolve must not call back into the cache.
func (c *MemoryCache) DeleteResolved(resolve func(keys []string) []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteLocked(resolve(c.lru.Keys()))
}

func (c *MemoryCache) deleteLocked(keys []string) []string {
	deleted := make([]string, 0, len(keys))
	for _, key := range keys {
		if c.lru.Remove(key) {
			deleted = append(deleted, key)
		}
	}
	return deleted
}

// Clear removes every page.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
	c.totalBytes = 0
}

// Keys returns the stored keys from least to most recently used.
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Keys()
}

// Stats returns the current size and limits.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked()
}

// Counters returns hit, miss and eviction totals.
func (c *MemoryCache) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

// Resize applies new limits and evicts until both bounds hold.
func (c *MemoryCache) Resize(limits Limits) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.limits = limits.clamp()
	if n := c.lru.Resize(lruCapacity(c.limits)); n > 0 {
		c.counters.Evictions += uint64(n)
	}
	c.evictLocked()
	return c.statsLocked()
}

// Limits returns the configured bounds.
func (c *MemoryCache) Limits() Limits {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limits
}

// evictLocked drops least recently used entries until both bounds hold.
// The newest entry goes last, so it only leaves when it cannot fit alone.
func (c *MemoryCache) evictLocked() {
	for c.lru.Len() > 0 && (c.lru.Len() > c.limits.MaxEntries || c.totalBytes > c.limits.MaxBytes) {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
		c.counters.Evictions++
	}
}

func (c *MemoryCache) statsLocked() Stats {
	return Stats{
		Entries:    c.lru.Len(),
		TotalBytes: c.totalBytes,
		MaxEntries: c.limits.MaxEntries,
		MaxBytes:   c.limits.MaxBytes,
	}
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
