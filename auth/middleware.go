package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/rendercache/observe"
)

// StatusCode maps an authentication error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotConfigured):
		return http.StatusForbidden
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenMalformed):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Middleware rejects requests that fail authn and attaches the identity to
// the request context of those that pass. logger may be nil.
func Middleware(authn Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			result, err := authn.Authenticate(ctx, NewAuthRequest(r))
			if err == nil && !result.Authenticated {
				err = result.Error
				if err == nil {
					err = ErrInvalidCredentials
				}
			}
			if err != nil {
				status := StatusCode(err)
				logger.Warn(ctx, "admin request rejected",
					observe.F("path", r.URL.Path),
					observe.F("status", status),
					observe.F("error", err.Error()),
				)
				writeError(w, status, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, result.Identity)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := "unauthorized"
	switch status {
	case http.StatusForbidden:
		msg = "admin key not configured on server"
	case http.StatusInternalServerError:
		msg = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
