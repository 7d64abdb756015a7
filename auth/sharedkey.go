package auth

import (
	"context"
	"crypto/subtle"
)

// AdminKeyHeader carries the shared admin key.
const AdminKeyHeader = "X-Admin-Key"

// SharedKeyAuthenticator compares a header value against a server-held key.
type SharedKeyAuthenticator struct {
	header string
	key    []byte
}

// NewSharedKeyAuthenticator creates an authenticator for key. An empty key
// leaves it unconfigured. header defaults to AdminKeyHeader.
func NewSharedKeyAuthenticator(header, key string) *SharedKeyAuthenticator {
	if header == "" {
		header = AdminKeyHeader
	}
	return &SharedKeyAuthenticator{header: header, key: []byte(key)}
}

// Name returns "shared_key".
func (a *SharedKeyAuthenticator) Name() string {
	return string(AuthMethodSharedKey)
}

// Configured reports whether a non-empty key is held.
func (a *SharedKeyAuthenticator) Configured() bool {
	return len(a.key) > 0
}

// Supports returns true if the request carries the key header.
func (a *SharedKeyAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return req.GetHeader(a.header) != ""
}

// Authenticate checks the header value by exact, constant-time comparison.
func (a *SharedKeyAuthenticator) Authenticate(_ context.Context, req *AuthRequest) (*AuthResult, error) {
	if !a.Configured() {
		return AuthFailure(ErrNotConfigured, a.Name()), nil
	}

	supplied := req.GetHeader(a.header)
	if supplied == "" {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}
	if subtle.ConstantTimeCompare([]byte(supplied), a.key) != 1 {
		return AuthFailure(ErrInvalidCredentials, a.Name()), nil
	}

	return AuthSuccess(&Identity{
		Principal: "admin",
		Method:    AuthMethodSharedKey,
	}), nil
}

var _ Authenticator = (*SharedKeyAuthenticator)(nil)
