package gateway

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonwraymond/rendercache/cache"
	"github.com/jonwraymond/rendercache/observe"
	"github.com/jonwraymond/rendercache/render"
	"github.com/jonwraymond/rendercache/resilience"
)

// Response headers.
const (
	HeaderCache     = "X-SSR-Cache"
	HeaderRequestID = "X-Request-Id"
)

// Cache-Control values for static files.
const (
	staticCacheControl = "public, max-age=31536000"
	hashedCacheControl = "public, max-age=31536000, immutable"
)

// hashedAsset matches build outputs with a content hash, e.g. main.3f9a2c1b.js.
var hashedAsset = regexp.MustCompile(`\.[a-f0-9]{8,}\.`)

// Config configures a Gateway.
type Config struct {
	// StaticDir holds client assets. Empty disables static serving.
	StaticDir string

	// Origin overrides the origin passed to the engine. Empty means derive
	// it from X-Forwarded-Proto and Host.
	Origin string

	// RetryAfter is sent with 503 responses while the render circuit is open.
	// Default: 0 (header omitted)
	RetryAfter int

	// Logger receives one entry per page request.
	// Default: observe.NopLogger()
	Logger observe.Logger
}

// Gateway is the page-serving http.Handler.
type Gateway struct {
	loader     *cache.Loader
	engine     render.Engine
	static     fs.FS
	origin     string
	retryAfter int
	logger     observe.Logger
}

// New creates a Gateway rendering misses through engine.
func New(loader *cache.Loader, engine render.Engine, cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	g := &Gateway{
		loader:     loader,
		engine:     engine,
		origin:     cfg.Origin,
		retryAfter: cfg.RetryAfter,
		logger:     cfg.Logger.With(observe.F("component", "gateway")),
	}
	if cfg.StaticDir != "" {
		g.static = os.DirFS(cfg.StaticDir)
	}
	return g
}

// ServeHTTP serves a static file or a rendered page.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	requestID := r.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(HeaderRequestID, requestID)

	if g.serveStatic(w, r) {
		return
	}
	g.servePage(w, r, requestID)
}

// serveStatic writes the file named by the request path if one exists.
func (g *Gateway) serveStatic(w http.ResponseWriter, r *http.Request) bool {
	if g.static == nil {
		return false
	}
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(g.static, name)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	if hashedAsset.MatchString(name) {
		w.Header().Set("Cache-Control", hashedCacheControl)
	} else {
		w.Header().Set("Cache-Control", staticCacheControl)
	}
	http.ServeFileFS(w, r, g.static, name)
	return true
}

func (g *Gateway) servePage(w http.ResponseWriter, r *http.Request, requestID string) {
	key := cache.KeyFor(r)
	rc := render.NewContext(render.OriginFromRequest(r, g.origin))
	logger := g.logger.With(observe.F("request_id", requestID), observe.F("key", key))

	ctx := render.WithPage(r.Context(), observe.PageMeta{Key: key, Trigger: observe.TriggerRequest})
	html, outcome, err := g.loader.Load(ctx, key, func(ctx context.Context) ([]byte, error) {
		return g.engine.Render(ctx, rc.URL(key), rc)
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, resilience.ErrCircuitOpen) {
			status = http.StatusServiceUnavailable
			if g.retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(g.retryAfter))
			}
		}
		logger.Error(ctx, "page render failed", observe.F("status", status), observe.F("error", err.Error()))
		http.Error(w, http.StatusText(status), status)
		return
	}

	if outcome == cache.OutcomeHit {
		logger.Debug(ctx, "page served", observe.F("cache", string(outcome)))
	} else {
		logger.Info(ctx, "page served", observe.F("cache", string(outcome)), observe.F("bytes", len(html)))
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(html)))
	h.Set(HeaderCache, string(outcome))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(html)
	}
}
