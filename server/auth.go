package server

import (
	"github.com/jonwraymond/rendercache/auth"
	"github.com/jonwraymond/rendercache/config"
)

// NewAuthenticator builds the admin authenticator: the X-Admin-Key shared
// key, plus HS256 bearer tokens when a JWT secret is configured.
func NewAuthenticator(cfg config.AdminConfig) auth.Authenticator {
	members := []auth.Authenticator{
		auth.NewSharedKeyAuthenticator(auth.AdminKeyHeader, cfg.Key),
	}
	if cfg.JWTSecret != "" {
		members = append(members, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
		}))
	}
	return auth.NewCompositeAuthenticator(members...)
}
