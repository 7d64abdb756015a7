package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Outcome reports whether a Load was served from the cache.
type Outcome string

const (
	// OutcomeHit means the page came from the cache.
	OutcomeHit Outcome = "HIT"
	// OutcomeMiss means the page was rendered for this call.
	OutcomeMiss Outcome = "MISS"
)

// RenderFunc produces the HTML for a page on a cache miss.
type RenderFunc func(ctx context.Context) ([]byte, error)

// Loader renders pages through a Cache.
//
// Per request the flow is LOOKUP, then either HIT or RENDER and STORE.
// Render errors are returned to the caller and never stored.
//
// Without coalescing, two concurrent misses on one key both render and both
// store (last write wins). WithCoalescing shares a single render between them;
// that render keeps the first caller's context values but not its
// cancellation, so a caller hanging up does not fail the others.
type Loader struct {
	cache    Cache
	coalesce bool
	group    singleflight.Group
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithCoalescing enables one shared render per key for concurrent misses.
func WithCoalescing(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.coalesce = enabled
	}
}

// NewLoader creates a Loader backed by c.
func NewLoader(c Cache, opts ...LoaderOption) *Loader {
	l := &Loader{cache: c}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cache returns the underlying cache.
func (l *Loader) Cache() Cache {
	return l.cache
}

// Load returns the cached page for key, rendering and storing it on a miss.
func (l *Loader) Load(ctx context.Context, key string, render RenderFunc) ([]byte, Outcome, error) {
	if html, ok := l.cache.Get(key); ok {
		return html, OutcomeHit, nil
	}

	html, err := l.renderAndStore(ctx, key, render)
	if err != nil {
		return nil, OutcomeMiss, err
	}
	return html, OutcomeMiss, nil
}

// Refresh renders key unconditionally and stores the result.
func (l *Loader) Refresh(ctx context.Context, key string, render RenderFunc) ([]byte, error) {
	return l.renderAndStore(ctx, key, render)
}

func (l *Loader) renderAndStore(ctx context.Context, key string, render RenderFunc) ([]byte, error) {
	if !l.coalesce {
		return l.store(ctx, key, render)
	}

	// The shared render outlives any single caller; deadlines come from the
	// render guards, not from the leader's request.
	shared := context.WithoutCancel(ctx)
	v, err, _ := l.group.Do(key, func() (any, error) {
		return l.store(shared, key, render)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (l *Loader) store(ctx context.Context, key string, render RenderFunc) ([]byte, error) {
	html, err := render(ctx)
	if err != nil {
		return nil, err
	}
	l.cache.Set(key, html)
	return html, nil
}
