package auth

import "context"

// CompositeAuthenticator tries multiple authenticators in sequence and
// returns on the first success.
type CompositeAuthenticator struct {
	// Authenticators is the ordered list of authenticators to try.
	Authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{Authenticators: auths}
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string {
	return "composite"
}

// Configured returns true if any authenticator is configured.
func (c *CompositeAuthenticator) Configured() bool {
	for _, a := range c.Authenticators {
		if a.Configured() {
			return true
		}
	}
	return false
}

// Supports returns true if any configured authenticator supports the request.
func (c *CompositeAuthenticator) Supports(ctx context.Context, req *AuthRequest) bool {
	for _, a := range c.Authenticators {
		if a.Configured() && a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate tries each configured authenticator that supports the
// request. Unconfigured members are skipped, so a server holding only a
// bearer secret rejects X-Admin-Key callers with 401 rather than 403.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	if !c.Configured() {
		return AuthFailure(ErrNotConfigured, c.Name()), nil
	}

	var lastResult *AuthResult
	for _, a := range c.Authenticators {
		if !a.Configured() || !a.Supports(ctx, req) {
			continue
		}

		result, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if result.Authenticated {
			return result, nil
		}
		lastResult = result
	}

	if lastResult != nil {
		return lastResult, nil
	}
	return AuthFailure(ErrMissingCredentials, c.Name()), nil
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
