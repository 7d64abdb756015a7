package render

import (
	"context"

	"github.com/jonwraymond/rendercache/observe"
)

type pageKey struct{}

// WithPage attaches telemetry metadata for the render about to happen.
func WithPage(ctx context.Context, meta observe.PageMeta) context.Context {
	return context.WithValue(ctx, pageKey{}, meta)
}

// PageFromContext returns the metadata set by WithPage.
func PageFromContext(ctx context.Context) (observe.PageMeta, bool) {
	meta, ok := ctx.Value(pageKey{}).(observe.PageMeta)
	return meta, ok
}

// Instrument wraps next with the observe middleware. The page metadata comes
// from WithPage; without it the URL is used as the key.
func Instrument(next Engine, mw *observe.Middleware) Engine {
	return EngineFunc(func(ctx context.Context, url string, rc Context) ([]byte, error) {
		meta, ok := PageFromContext(ctx)
		if !ok {
			meta = observe.PageMeta{Key: url, Trigger: observe.TriggerRequest}
		}
		meta.URL = url

		return mw.Wrap(func(ctx context.Context, _ observe.PageMeta) ([]byte, error) {
			return next.Render(ctx, url, rc)
		})(ctx, meta)
	})
}
