package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/jonwraymond/rendercache/observe"
	"github.com/jonwraymond/rendercache/secret"
)

// Environment overrides.
const (
	EnvAdminKey        = "ADMIN_CACHE_KEY"
	EnvCacheMaxEntries = "SSR_CACHE_MAX_ENTRIES"
	EnvCacheMaxBytes   = "SSR_CACHE_MAX_BYTES"
	EnvPort            = "PORT"
	EnvUpstream        = "SSR_UPSTREAM_URL"
	EnvLogLevel        = "SSR_LOG_LEVEL"
)

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return load(data, os.LookupEnv)
}

// Parse builds a Config from YAML bytes and the process environment.
func Parse(data []byte) (*Config, error) {
	return load(data, os.LookupEnv)
}

func load(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if len(data) > 0 {
		expanded, err := secret.ExpandEnvStrict(string(data))
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.UnmarshalWithOptions([]byte(expanded), cfg, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("config: parse YAML: %w", err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAdminKey); ok {
		cfg.Admin.Key = v
	}
	if v, ok := lookup(EnvUpstream); ok && v != "" {
		cfg.Render.Upstream = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		if _, err := strconv.ParseUint(v, 10, 16); err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvPort, v)
		}
		cfg.Server.Addr = ":" + v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Observe.LogLevel = v
	}
	if v, ok := lookup(EnvCacheMaxEntries); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvCacheMaxEntries, v)
		}
		cfg.Cache.MaxEntries = n
	}
	if v, ok := lookup(EnvCacheMaxBytes); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvCacheMaxBytes, v)
		}
		cfg.Cache.MaxBytes = n
	}
	return nil
}

// Validate checks every section and reports the first problem.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	if c.Server.Origin != "" {
		if err := checkHTTPURL(c.Server.Origin); err != nil {
			return invalid("server.origin: %v", err)
		}
	}
	if c.Server.ShutdownTimeout <= 0 {
		return invalid("server.shutdown_timeout must be positive")
	}

	if c.Cache.MaxEntries < 0 {
		return invalid("cache.max_entries must not be negative")
	}
	if c.Cache.MaxBytes < 0 {
		return invalid("cache.max_bytes must not be negative")
	}

	if err := checkHTTPURL(c.Render.Upstream); err != nil {
		return invalid("render.upstream: %v", err)
	}
	if c.Render.Timeout <= 0 {
		return invalid("render.timeout must be positive")
	}
	if c.Render.MaxConcurrent < 1 {
		return invalid("render.max_concurrent must be at least 1")
	}
	if c.Render.Retries < 0 {
		return invalid("render.retries must not be negative")
	}
	if c.Render.BreakerFailures < 1 {
		return invalid("render.breaker_failures must be at least 1")
	}
	if c.Render.BreakerReset <= 0 {
		return invalid("render.breaker_reset must be positive")
	}

	if c.Admin.WarmConcurrency < 1 {
		return invalid("admin.warm_concurrency must be at least 1")
	}
	if c.Admin.WarmRate < 0 {
		return invalid("admin.warm_rate must not be negative")
	}

	if c.Observe.ServiceName == "" {
		return invalid("observe.service_name is required")
	}
	if _, err := observe.ParseLogLevel(c.Observe.LogLevel); err != nil {
		return invalid("observe.log_level: %v", err)
	}
	if !slices.Contains(observe.ValidTracingExporters, c.Observe.TracingExporter) {
		return invalid("observe.tracing_exporter %q", c.Observe.TracingExporter)
	}
	if !slices.Contains(observe.ValidMetricsExporters, c.Observe.MetricsExporter) {
		return invalid("observe.metrics_exporter %q", c.Observe.MetricsExporter)
	}
	if c.Observe.SamplePct < 0 || c.Observe.SamplePct > 1 {
		return invalid("observe.sample_pct must be within [0, 1]")
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// ResolveSecrets replaces secretref: values in the admin section.
func (c *Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	for _, field := range []struct {
		name string
		v    *string
	}{
		{"admin.key", &c.Admin.Key},
		{"admin.jwt_secret", &c.Admin.JWTSecret},
	} {
		if strings.TrimSpace(*field.v) == "" {
			continue
		}
		resolved, err := r.ResolveValue(ctx, *field.v)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", field.name, err)
		}
		*field.v = resolved
	}
	return nil
}
