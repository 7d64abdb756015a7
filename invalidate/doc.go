// Package invalidate maps content-change events to the render cache keys
// they make stale.
//
// A Router turns an Event (deck, page, project_page or background for a
// tenant slug) into the exact key list to purge. A Client sends events to a
// remote render service's admin API with retries and a circuit breaker.
package invalidate
