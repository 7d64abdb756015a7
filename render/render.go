package render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultOrigin is used when a request carries no Host header.
const DefaultOrigin = "http://localhost:4000"

// Context carries the values the engine needs besides the URL.
type Context struct {
	// BasePath is the base href the app is served at.
	BasePath string

	// OriginURL is scheme://host of the public site, used for absolute links.
	OriginURL string
}

// NewContext returns a Context with BasePath "/".
func NewContext(origin string) Context {
	return Context{BasePath: "/", OriginURL: origin}
}

// URL returns the absolute URL for a request target.
func (c Context) URL(target string) string {
	return strings.TrimSuffix(c.OriginURL, "/") + target
}

// OriginFromRequest derives the public origin from X-Forwarded-Proto and
// Host. A non-empty override wins.
func OriginFromRequest(r *http.Request, override string) string {
	if override != "" {
		return strings.TrimSuffix(override, "/")
	}

	proto := r.Header.Get("X-Forwarded-Proto")
	if i := strings.IndexByte(proto, ','); i >= 0 {
		proto = proto[:i]
	}
	proto = strings.TrimSpace(proto)
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}

	if r.Host == "" {
		return DefaultOrigin
	}
	return proto + "://" + r.Host
}

// Engine renders a page.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: implementations should honor cancellation.
// - Errors: a failed render returns a non-nil error and no HTML.
type Engine interface {
	Render(ctx context.Context, url string, rc Context) ([]byte, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, url string, rc Context) ([]byte, error)

// Render calls f.
func (f EngineFunc) Render(ctx context.Context, url string, rc Context) ([]byte, error) {
	return f(ctx, url, rc)
}

// ErrRenderEngineFailure matches every *RenderError via errors.Is.
var ErrRenderEngineFailure = errors.New("render: render engine failure")

// RenderError reports a failed render of URL.
type RenderError struct {
	URL string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: render engine failure for %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRenderEngineFailure.
func (e *RenderError) Is(target error) bool {
	return target == ErrRenderEngineFailure
}

func wrapFailure(url string, err error) error {
	if err == nil {
		return nil
	}
	var re *RenderError
	if errors.As(err, &re) {
		return err
	}
	return &RenderError{URL: url, Err: err}
}
