// Package server assembles the render cache into one http.Server.
//
// Routes, most specific first:
//
//	/__admin/   admin API (auth guarded)
//	/__healthz  liveness
//	/__readyz   readiness
//	/__health   detailed health
//	/__metrics  Prometheus scrape endpoint, when a registry is supplied
//	/           static assets, then cached pages
//
// Renders go through the configured engine wrapped in a bulkhead, optional
// retry, circuit breaker and per-attempt timeout, then tracing and metrics.
package server
