package config

import (
	"time"

	"github.com/jonwraymond/rendercache/cache"
	"github.com/jonwraymond/rendercache/observe"
	"github.com/jonwraymond/rendercache/render"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Render  RenderConfig  `yaml:"render"`
	Admin   AdminConfig   `yaml:"admin"`
	Observe ObserveConfig `yaml:"observe"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":4000". The PORT variable overrides it with ":$PORT".
	Addr string `yaml:"addr"`

	// StaticDir holds built client assets. Empty disables static serving.
	// Default: "dist/client"
	StaticDir string `yaml:"static_dir"`

	// Origin overrides the origin passed to the render engine. Empty means
	// derive it from each request.
	Origin string `yaml:"origin"`

	// Compress enables gzip response compression.
	// Default: true
	Compress bool `yaml:"compress"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CacheConfig configures the render cache.
type CacheConfig struct {
	// MaxEntries is SSR_CACHE_MAX_ENTRIES. Default: 500
	MaxEntries int `yaml:"max_entries"`

	// MaxBytes is SSR_CACHE_MAX_BYTES. Default: 50 MiB
	MaxBytes int64 `yaml:"max_bytes"`

	// Coalesce shares one render between concurrent misses on a key.
	// Default: false
	Coalesce bool `yaml:"coalesce"`
}

// RenderConfig configures the upstream render engine.
type RenderConfig struct {
	// Upstream is the render engine base URL. SSR_UPSTREAM_URL overrides it.
	// Default: "http://localhost:5173"
	Upstream string `yaml:"upstream"`

	// Timeout bounds one render call. Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxConcurrent caps renders in flight. Default: 16
	MaxConcurrent int `yaml:"max_concurrent"`

	// Retries is the number of extra attempts after a failed render.
	// Default: 0
	Retries int `yaml:"retries"`

	// BreakerFailures opens the render circuit. Default: 5
	BreakerFailures int `yaml:"breaker_failures"`

	// BreakerReset is how long the circuit stays open. Default: 60s
	BreakerReset time.Duration `yaml:"breaker_reset"`

	// MaxBodyBytes caps one rendered page. Default: 10 MiB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// AdminConfig configures the admin control surface.
type AdminConfig struct {
	// Key is the shared admin key (ADMIN_CACHE_KEY). Empty disables the
	// shared key; with no JWTSecret either, every admin call gets 403.
	Key string `yaml:"key"`

	// JWTSecret enables HS256 bearer tokens when set.
	JWTSecret string `yaml:"jwt_secret"`

	// JWTIssuer is the required iss claim, if set.
	JWTIssuer string `yaml:"jwt_issuer"`

	// SecretDir roots relative secretref:file: paths.
	SecretDir string `yaml:"secret_dir"`

	// WarmConcurrency caps parallel renders in one warm call. Default: 4
	WarmConcurrency int `yaml:"warm_concurrency"`

	// WarmRate limits warm renders per second. Zero means unlimited.
	// Default: 0
	WarmRate float64 `yaml:"warm_rate"`
}

// ObserveConfig configures logging, tracing and metrics.
type ObserveConfig struct {
	// ServiceName. Default: "ssrcache"
	ServiceName string `yaml:"service_name"`

	// LogLevel is debug, info, warn or error. Default: "info"
	LogLevel string `yaml:"log_level"`

	// TracingExporter is otlp, jaeger, stdout or none. Default: "none"
	TracingExporter string `yaml:"tracing_exporter"`

	// SamplePct is the trace sampling ratio in [0, 1]. Default: 1
	SamplePct float64 `yaml:"sample_pct"`

	// MetricsExporter is otlp, prometheus, stdout or none.
	// Default: "prometheus"
	MetricsExporter string `yaml:"metrics_exporter"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	limits := cache.DefaultLimits()
	return &Config{
		Server: ServerConfig{
			Addr:            ":4000",
			StaticDir:       "dist/client",
			Compress:        true,
			ShutdownTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			MaxEntries: limits.MaxEntries,
			MaxBytes:   limits.MaxBytes,
		},
		Render: RenderConfig{
			Upstream:        "http://localhost:5173",
			Timeout:         30 * time.Second,
			MaxConcurrent:   16,
			BreakerFailures: 5,
			BreakerReset:    60 * time.Second,
			MaxBodyBytes:    render.DefaultMaxBodyBytes,
		},
		Admin: AdminConfig{
			WarmConcurrency: 4,
		},
		Observe: ObserveConfig{
			ServiceName:     "ssrcache",
			LogLevel:        "info",
			TracingExporter: "none",
			SamplePct:       1,
			MetricsExporter: "prometheus",
		},
	}
}

// CacheLimits returns the cache bounds.
func (c *Config) CacheLimits() cache.Limits {
	return cache.Limits{MaxEntries: c.Cache.MaxEntries, MaxBytes: c.Cache.MaxBytes}
}

// ObserverConfig maps the observe section onto observe.Config.
func (c *Config) ObserverConfig(version string) observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   o.TracingExporter != "" && o.TracingExporter != "none",
			Exporter:  o.TracingExporter,
			SamplePct: o.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.MetricsExporter != "" && o.MetricsExporter != "none",
			Exporter: o.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.LogLevel,
		},
	}
}
