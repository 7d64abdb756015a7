package auth

import "time"

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodSharedKey AuthMethod = "shared_key"
	AuthMethodJWT       AuthMethod = "jwt"
)

// Identity is the authenticated admin caller.
type Identity struct {
	// Principal names the caller. Shared-key callers are "admin"; bearer
	// callers take the configured principal claim.
	Principal string

	// Method indicates how authentication was performed.
	Method AuthMethod

	// Claims holds the token claims for bearer callers.
	Claims map[string]any

	// ExpiresAt is zero when the credential does not expire.
	ExpiresAt time.Time
}

// IsExpired checks if the identity has expired.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}
