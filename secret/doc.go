// Package secret resolves credentials referenced from configuration.
//
// Configuration values go through strict environment expansion first
// (see ExpandEnvStrict). A value that is then a whole secret reference is
// replaced by what its provider returns:
//
//	admin:
//	  key: secretref:env:ADMIN_CACHE_KEY
//	  jwt_secret: secretref:file:/run/secrets/ssr-jwt
//
// Two providers are built in. "env" reads an environment variable and
// "file" reads a file, dropping one trailing newline so mounted secrets
// work unchanged.
package secret
