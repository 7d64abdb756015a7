// Package render calls the external engine that turns a page URL into HTML.
//
// The engine is a collaborator: an Angular/Node SSR process, a sidecar, or
// any function with the Engine signature. This package supplies the render
// Context (base path and origin), an HTTP engine for an upstream sidecar,
// a guard that runs calls through the resilience executor, and telemetry
// instrumentation.
package render
