// Package auth guards the admin control surface.
//
// Callers present either the shared admin key in the X-Admin-Key header or,
// when a signing secret is configured, an HS256 bearer token. The key is
// compared by exact match in constant time; it is never trimmed or
// normalized.
//
// Middleware maps outcomes to HTTP status codes: a server without any
// credential configured answers 403, a missing or mismatched credential
// answers 401. Rejected requests never reach the wrapped handler.
package auth
