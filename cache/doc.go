// Package cache stores server-rendered HTML pages in memory.
//
// It provides request path normalization, a count- and byte-bounded LRU
// cache, and a Loader that renders through the cache on a miss.
package cache
