package auth

import "errors"

// Sentinel errors for admin authentication.
var (
	// ErrNotConfigured means the server holds no admin credential.
	ErrNotConfigured = errors.New("auth: admin credential not configured on server")

	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
)
