package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/rendercache/admin"
	"github.com/jonwraymond/rendercache/auth"
	"github.com/jonwraymond/rendercache/cache"
	"github.com/jonwraymond/rendercache/config"
	"github.com/jonwraymond/rendercache/gateway"
	"github.com/jonwraymond/rendercache/health"
	"github.com/jonwraymond/rendercache/observe"
	"github.com/jonwraymond/rendercache/render"
	"github.com/jonwraymond/rendercache/resilience"
)

// MetricsPath serves the Prometheus registry.
const MetricsPath = "/__metrics"

// Options supplies the collaborators New does not build from config.
type Options struct {
	// Observer provides the tracer, meter and logger.
	// Default: no tracing or metrics, Logger below
	Observer observe.Observer

	// Logger overrides the observer's logger.
	Logger observe.Logger

	// Registry is exposed at MetricsPath. Nil leaves the route out.
	Registry *prometheus.Registry

	// Engine renders pages before the resilience chain is applied.
	// Default: an HTTPEngine for cfg.Render.Upstream
	Engine render.Engine

	// Authenticator guards the admin API.
	// Default: NewAuthenticator(cfg.Admin)
	Authenticator auth.Authenticator
}

// Server is the assembled render cache.
type Server struct {
	cfg     *config.Config
	cache   *cache.MemoryCache
	loader  *cache.Loader
	admin   *admin.Service
	health  *health.Aggregator
	breaker *resilience.CircuitBreaker
	handler http.Handler
	logger  observe.Logger
	metrics metric.Registration
}

// New builds a Server from cfg.
func New(cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil && opts.Observer != nil {
		logger = opts.Observer.Logger()
	}
	if logger == nil {
		logger = observe.NopLogger()
	}

	base := opts.Engine
	if base == nil {
		httpEngine, err := render.NewHTTPEngine(render.HTTPEngineConfig{
			Upstream:     cfg.Render.Upstream,
			MaxBodyBytes: cfg.Render.MaxBodyBytes,
		})
		if err != nil {
			return nil, err
		}
		base = httpEngine
	}

	mw := observe.NewMiddleware(observe.NewNoopTracer(), observe.NewNoopMetrics(), logger)
	if opts.Observer != nil {
		var err error
		if mw, err = observe.MiddlewareFromObserver(opts.Observer); err != nil {
			return nil, fmt.Errorf("server: render metrics: %w", err)
		}
	}
	engine, breaker := buildEngine(cfg.Render, base, mw, logger)

	store := cache.NewMemoryCache(cfg.CacheLimits())
	loader := cache.NewLoader(store, cache.WithCoalescing(cfg.Cache.Coalesce))

	s := &Server{
		cfg:     cfg,
		cache:   store,
		loader:  loader,
		breaker: breaker,
		logger:  logger.With(observe.F("component", "server")),
	}

	if opts.Observer != nil {
		reg, err := observe.RegisterCacheMetrics(opts.Observer.Meter(), s.snapshot)
		if err != nil {
			return nil, fmt.Errorf("server: cache metrics: %w", err)
		}
		s.metrics = reg
	}

	s.admin = admin.NewService(store, engine, admin.Config{
		Loader:          loader,
		WarmConcurrency: cfg.Admin.WarmConcurrency,
		WarmRate:        cfg.Admin.WarmRate,
		Logger:          logger,
	})

	s.health = health.NewAggregator(health.AggregatorConfig{})
	s.health.Register(
		health.NewCacheChecker(store, health.DefaultCacheThreshold),
		health.NewBreakerChecker(breaker),
	)

	authn := opts.Authenticator
	if authn == nil {
		authn = NewAuthenticator(cfg.Admin)
	}

	mux := http.NewServeMux()
	mux.Handle(admin.PathPrefix, admin.NewHandler(s.admin, admin.HandlerConfig{
		Authenticator: authn,
		Origin:        cfg.Server.Origin,
		Logger:        logger,
	}))
	health.RegisterHandlers(mux, s.health)
	if opts.Registry != nil {
		mux.Handle(MetricsPath, promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", gateway.New(loader, engine, gateway.Config{
		StaticDir:  cfg.Server.StaticDir,
		Origin:     cfg.Server.Origin,
		RetryAfter: int(cfg.Render.BreakerReset / time.Second),
		Logger:     logger,
	}))

	s.handler = mux
	if cfg.Server.Compress {
		s.handler = gzhttp.GzipHandler(mux)
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Cache returns the live render cache.
func (s *Server) Cache() *cache.MemoryCache {
	return s.cache
}

// Admin returns the admin service.
func (s *Server) Admin() *admin.Service {
	return s.admin
}

// Health returns the health aggregator.
func (s *Server) Health() *health.Aggregator {
	return s.health
}

func (s *Server) snapshot() observe.CacheSnapshot {
	st := s.cache.Stats()
	c := s.cache.Counters()
	return observe.CacheSnapshot{
		Entries:    int64(st.Entries),
		TotalBytes: st.TotalBytes,
		Hits:       int64(c.Hits),
		Misses:     int64(c.Misses),
		Evictions:  int64(c.Evictions),
	}
}

type levelSetter interface {
	SetLevel(level string) error
}

// Apply takes the reloadable parts of cfg: cache limits, which evict at
// once, and the log level. Other fields need a restart.
func (s *Server) Apply(cfg *config.Config) {
	ctx := context.Background()

	stats := s.cache.Resize(cfg.CacheLimits())
	if ls, ok := s.logger.(levelSetter); ok {
		if err := ls.SetLevel(cfg.Observe.LogLevel); err != nil {
			s.logger.Warn(ctx, "log level not applied", observe.F("error", err.Error()))
		}
	}

	s.logger.Info(ctx, "config applied",
		observe.F("max_entries", stats.MaxEntries),
		observe.F("max_bytes", stats.MaxBytes),
		observe.F("entries", stats.Entries),
		observe.F("total_bytes", stats.TotalBytes),
		observe.F("log_level", cfg.Observe.LogLevel))
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if zl, ok := s.logger.(*observe.ZapLogger); ok {
		srv.ErrorLog = zl.StdLog()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info(ctx, "listening", observe.F("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the cache metric callbacks.
func (s *Server) Close() error {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.Unregister()
}
