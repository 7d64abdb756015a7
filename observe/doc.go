// Package observe provides logging, tracing and metrics for the render cache.
//
// Logging goes through the Logger interface, backed by zap. Tracing and
// metrics use OpenTelemetry; exporters are chosen by name in Config and
// built by the exporters subpackage. The package does no rendering itself:
// Middleware wraps a RenderFunc and records a span, a log line and the
// ssr.render.* instruments around each call.
package observe
