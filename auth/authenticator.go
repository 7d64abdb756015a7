package auth

import (
	"context"
	"net/http"
)

// Authenticator checks one kind of admin credential. Implementations are
// safe for concurrent use. A bad or missing credential is reported through
// AuthResult.Error with a nil error return; the error return is kept for
// failures of the authenticator itself.
type Authenticator interface {
	Name() string

	// Configured reports whether the server holds a credential to check
	// against. Unconfigured authenticators reject every request.
	Configured() bool

	// Supports returns true if the request carries this authenticator's
	// credential.
	Supports(ctx context.Context, req *AuthRequest) bool

	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error)
}

// AuthRequest is the part of an admin request the authenticators look at.
type AuthRequest struct {
	Headers  http.Header
	Resource string // admin route path
}

// NewAuthRequest builds an AuthRequest from an HTTP request.
func NewAuthRequest(r *http.Request) *AuthRequest {
	return &AuthRequest{Headers: r.Header, Resource: r.URL.Path}
}

// GetHeader looks up a header case-insensitively. A request without
// headers yields "".
func (r *AuthRequest) GetHeader(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// AuthResult carries either an Identity or an Error, never both.
type AuthResult struct {
	Authenticated bool
	Identity      *Identity
	Error         error
	Method        string // authenticator that decided
}

func AuthSuccess(identity *Identity) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		Identity:      identity,
		Method:        string(identity.Method),
	}
}

// AuthFailure rejects with one of the package sentinels.
func AuthFailure(err error, method string) *AuthResult {
	return &AuthResult{
		Authenticated: false,
		Error:         err,
		Method:        method,
	}
}
