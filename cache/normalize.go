package cache

import (
	"net/http"
	"strings"
)

// Normalize returns the cache key for a raw request path, query included.
//
// The policy is deliberately minimal:
//   - "" becomes "/"
//   - a missing leading "/" is prepended
//   - the query string is kept verbatim (not sorted or deduplicated)
//   - trailing slashes are not collapsed, so "/foo" and "/foo/" are distinct keys
func Normalize(rawPath string) string {
	if rawPath == "" {
		return "/"
	}
	if !strings.HasPrefix(rawPath, "/") {
		return "/" + rawPath
	}
	return rawPath
}

// KeyFor returns the cache key for an inbound request, using the request
// target exactly as the client sent it.
func KeyFor(r *http.Request) string {
	return Normalize(RequestTarget(r))
}

// RequestTarget returns the origin-form path and query of r.
func RequestTarget(r *http.Request) string {
	if strings.HasPrefix(r.RequestURI, "/") {
		return r.RequestURI
	}
	// Absolute-form targets and client-built requests fall back to the URL.
	return r.URL.RequestURI()
}
