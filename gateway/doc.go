// Package gateway serves pages through the render cache.
//
// Every GET or HEAD request is first offered to the static asset directory.
// Anything else is a page: its request target, query included, is
// normalized into a cache key and looked up. A hit is written straight
// back; a miss renders through the engine, stores the HTML and writes it.
// The X-SSR-Cache response header says which path was taken.
//
// A failed render is never cached. It answers 500, or 503 while the render
// circuit breaker is open.
package gateway
