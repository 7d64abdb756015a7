// Package health reports whether the render cache server can serve pages.
//
// Two checkers cover the server's moving parts. CacheChecker reports
// degraded once the cache nears either of its bounds, since further misses
// will start evicting warm pages. BreakerChecker reports unhealthy while the
// render engine's circuit breaker is open, because every miss then fails
// fast.
//
// An Aggregator runs checkers concurrently under one timeout, and the HTTP
// handlers expose the result:
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register(health.NewCacheChecker(store, 0), health.NewBreakerChecker(breaker))
//	health.RegisterHandlers(mux, agg)
//
// /__healthz is a liveness probe, /__readyz answers 503 only when a check is
// unhealthy, and /__health returns every result as JSON.
package health
