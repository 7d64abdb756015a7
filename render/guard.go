package render

import (
	"context"

	"github.com/jonwraymond/rendercache/resilience"
)

// Guarded runs every render of next through ex (bulkhead, breaker,
// timeout). Failures, including rejections by ex, come back as *RenderError.
func Guarded(next Engine, ex *resilience.Executor) Engine {
	return EngineFunc(func(ctx context.Context, url string, rc Context) ([]byte, error) {
		var html []byte
		err := ex.Execute(ctx, func(ctx context.Context) error {
			out, err := next.Render(ctx, url, rc)
			if err != nil {
				return err
			}
			html = out
			return nil
		})
		if err != nil {
			return nil, wrapFailure(url, err)
		}
		return html, nil
	})
}
