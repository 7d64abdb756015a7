package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Headers sent to the upstream engine alongside the page request.
const (
	HeaderBasePath = "X-SSR-Base-Path"
	HeaderOrigin   = "X-SSR-Origin"
)

// DefaultMaxBodyBytes is the default cap on one rendered page.
const DefaultMaxBodyBytes = 10 << 20

// ErrResponseTooLarge is returned when the upstream body exceeds MaxBodyBytes.
var ErrResponseTooLarge = errors.New("render: upstream response too large")

// HTTPEngineConfig configures an HTTPEngine.
type HTTPEngineConfig struct {
	// Upstream is the base URL of the SSR process, e.g. http://127.0.0.1:4001.
	Upstream string

	// MaxBodyBytes caps the rendered page size.
	// Default: 10 MiB
	MaxBodyBytes int64

	// Client performs the requests.
	// Default: a client with no timeout of its own; bound calls with ctx.
	Client *http.Client
}

// HTTPEngine renders pages by asking an upstream SSR process for the same
// path and query.
type HTTPEngine struct {
	upstream *url.URL
	maxBody  int64
	client   *http.Client
}

// NewHTTPEngine creates an HTTPEngine.
func NewHTTPEngine(cfg HTTPEngineConfig) (*HTTPEngine, error) {
	if cfg.Upstream == "" {
		return nil, errors.New("render: upstream URL is required")
	}
	u, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("render: invalid upstream URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("render: upstream URL must be http or https, got %q", cfg.Upstream)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &HTTPEngine{upstream: u, maxBody: cfg.MaxBodyBytes, client: cfg.Client}, nil
}

// Render fetches the page for pageURL from the upstream. Only the path and
// query of pageURL are forwarded; the public origin travels in headers.
func (e *HTTPEngine) Render(ctx context.Context, pageURL string, rc Context) ([]byte, error) {
	target, err := url.Parse(pageURL)
	if err != nil {
		return nil, wrapFailure(pageURL, err)
	}

	// Join on the escaped forms so %2F and friends reach the upstream as sent.
	u := *e.upstream
	base := strings.TrimSuffix(e.upstream.EscapedPath(), "/")
	u.RawPath = base + target.EscapedPath()
	u.Path, err = url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, wrapFailure(pageURL, err)
	}
	u.RawQuery = target.RawQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, wrapFailure(pageURL, err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set(HeaderBasePath, rc.BasePath)
	req.Header.Set(HeaderOrigin, rc.OriginURL)
	if origin, err := url.Parse(rc.OriginURL); err == nil && origin.Host != "" {
		req.Header.Set("X-Forwarded-Host", origin.Host)
		req.Header.Set("X-Forwarded-Proto", origin.Scheme)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, wrapFailure(pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, wrapFailure(pageURL, fmt.Errorf("upstream returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody+1))
	if err != nil {
		return nil, wrapFailure(pageURL, err)
	}
	if int64(len(body)) > e.maxBody {
		return nil, wrapFailure(pageURL, ErrResponseTooLarge)
	}
	return body, nil
}

var _ Engine = (*HTTPEngine)(nil)
