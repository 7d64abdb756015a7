package admin

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/rendercache/cache"
	"github.com/jonwraymond/rendercache/invalidate"
	"github.com/jonwraymond/rendercache/observe"
	"github.com/jonwraymond/rendercache/render"
	"github.com/jonwraymond/rendercache/resilience"
)

// Store is the cache surface the admin operations need.
type Store interface {
	cache.Cache

	// DeleteResolved deletes the keys resolve picks from the current
	// listing, atomically with respect to other writes.
	DeleteResolved(resolve func(keys []string) []string) []string

	// Counters returns hit, miss and eviction totals.
	Counters() cache.Counters
}

// Config configures a Service.
type Config struct {
	// Loader renders and stores warmed pages. Share the gateway's loader
	// so warm renders coalesce with request renders.
	// Default: a new loader over the store
	Loader *cache.Loader

	// Router resolves invalidation events.
	// Default: invalidate.NewRouter()
	Router *invalidate.Router

	// WarmConcurrency caps parallel renders within one Warm call.
	// Default: 4
	WarmConcurrency int

	// WarmRate limits warm renders per second across all calls.
	// Zero means unlimited.
	WarmRate float64

	// Logger receives one entry per mutating operation.
	// Default: observe.NopLogger()
	Logger observe.Logger
}

// Service performs admin operations on a render cache.
//
// Contract:
// - Concurrency: safe for concurrent use; each operation is atomic with
//   respect to the cache because the Store is.
// - Errors: only Warm with no paths and Invalidate with an invalid event
//   fail. Per-path render failures are reported inside WarmResult.
type Service struct {
	store       Store
	engine      render.Engine
	loader      *cache.Loader
	router      *invalidate.Router
	limiter     *resilience.RateLimiter
	concurrency int
	logger      observe.Logger
}

// NewService creates a Service over store, rendering through engine.
func NewService(store Store, engine render.Engine, cfg Config) *Service {
	if cfg.Loader == nil {
		cfg.Loader = cache.NewLoader(store)
	}
	if cfg.Router == nil {
		cfg.Router = invalidate.NewRouter()
	}
	if cfg.WarmConcurrency <= 0 {
		cfg.WarmConcurrency = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	s := &Service{
		store:       store,
		engine:      engine,
		loader:      cfg.Loader,
		router:      cfg.Router,
		concurrency: cfg.WarmConcurrency,
		logger:      cfg.Logger.With(observe.F("component", "admin")),
	}
	if cfg.WarmRate > 0 {
		burst := max(1, int(cfg.WarmRate))
		s.limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        cfg.WarmRate,
			Burst:       burst,
			WaitOnLimit: true,
			MaxWait:     time.Minute,
		})
	}
	return s
}

// WarmedPath is the outcome of warming one path.
type WarmedPath struct {
	Path  string
	Bytes int
	Err   error
}

// MarshalJSON encodes {path, bytes} on success and {path, error} on failure.
func (w WarmedPath) MarshalJSON() ([]byte, error) {
	if w.Err != nil {
		return json.Marshal(struct {
			Path  string `json:"path"`
			Error string `json:"error"`
		}{w.Path, w.Err.Error()})
	}
	return json.Marshal(struct {
		Path  string `json:"path"`
		Bytes int    `json:"bytes"`
	}{w.Path, w.Bytes})
}

// WarmResult reports a Warm call, paths in request order.
type WarmResult struct {
	Warmed []WarmedPath `json:"warmed"`
	Stats  cache.Stats  `json:"stats"`
}

// Failed returns the number of paths that could not be warmed.
func (r WarmResult) Failed() int {
	n := 0
	for _, w := range r.Warmed {
		if w.Err != nil {
			n++
		}
	}
	return n
}

// Warm renders each path and stores the result, replacing any cached copy.
// Paths are normalized into cache keys first.
func (s *Service) Warm(ctx context.Context, paths []string, rc render.Context) (WarmResult, error) {
	if len(paths) == 0 {
		return WarmResult{}, ErrNoPaths
	}

	warmed := make([]WarmedPath, len(paths))
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, p := range paths {
		key := cache.Normalize(p)
		g.Go(func() error {
			warmed[i] = s.warmOne(ctx, key, rc)
			return nil
		})
	}
	_ = g.Wait()

	result := WarmResult{Warmed: warmed, Stats: s.store.Stats()}
	s.logger.Info(ctx, "cache warmed",
		observe.F("paths", len(paths)),
		observe.F("failed", result.Failed()),
		observe.F("entries", result.Stats.Entries),
	)
	return result, nil
}

func (s *Service) warmOne(ctx context.Context, key string, rc render.Context) WarmedPath {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return WarmedPath{Path: key, Err: err}
		}
	}

	ctx = render.WithPage(ctx, observe.PageMeta{Key: key, Trigger: observe.TriggerWarm})
	html, err := s.loader.Refresh(ctx, key, func(ctx context.Context) ([]byte, error) {
		return s.engine.Render(ctx, rc.URL(key), rc)
	})
	if err != nil {
		s.logger.Warn(ctx, "warm render failed", observe.F("key", key), observe.F("error", err.Error()))
		return WarmedPath{Path: key, Err: err}
	}
	return WarmedPath{Path: key, Bytes: len(html)}
}

// PurgeResult reports a single-key purge.
type PurgeResult struct {
	Deleted bool        `json:"deleted"`
	Path    string      `json:"path"`
	Stats   cache.Stats `json:"stats"`
}

// PurgeOne deletes the key for path.
func (s *Service) PurgeOne(ctx context.Context, path string) PurgeResult {
	key := cache.Normalize(path)
	deleted := s.store.Delete(key)
	s.logger.Info(ctx, "cache key purged", observe.F("key", key), observe.F("deleted", deleted))
	return PurgeResult{Deleted: deleted, Path: key, Stats: s.store.Stats()}
}

// ClearResult reports a full purge.
type ClearResult struct {
	Cleared bool        `json:"cleared"`
	Stats   cache.Stats `json:"stats"`
}

// PurgeAll empties the cache.
func (s *Service) PurgeAll(ctx context.Context) ClearResult {
	s.store.Clear()
	s.logger.Info(ctx, "cache cleared")
	return ClearResult{Cleared: true, Stats: s.store.Stats()}
}

// InvalidateResult reports an invalidation.
type InvalidateResult struct {
	OK      bool            `json:"ok"`
	Kind    invalidate.Kind `json:"kind"`
	Deleted []string        `json:"deleted"`
	Stats   cache.Stats     `json:"stats"`
}

// Invalidate resolves ev against the current keys and deletes the targets.
// An invalid event returns a *invalidate.ValidationError and deletes nothing.
func (s *Service) Invalidate(ctx context.Context, ev invalidate.Event) (InvalidateResult, error) {
	if err := ev.Validate(); err != nil {
		return InvalidateResult{}, err
	}

	var resolveErr error
	deleted := s.store.DeleteResolved(func(keys []string) []string {
		targets, err := s.router.Resolve(ev, keys)
		resolveErr = err
		return targets
	})
	if resolveErr != nil {
		return InvalidateResult{}, resolveErr
	}
	if deleted == nil {
		deleted = []string{}
	}
	s.logger.Info(ctx, "cache invalidated",
		observe.F("kind", string(ev.Kind)),
		observe.F("slug", ev.TenantSlug),
		observe.F("deleted", len(deleted)),
	)
	return InvalidateResult{OK: true, Kind: ev.Kind, Deleted: deleted, Stats: s.store.Stats()}, nil
}

// InspectResult is the cache listing. Stats fields are inlined.
type InspectResult struct {
	cache.Stats
	Counters cache.Counters `json:"counters"`
	Keys     []string       `json:"keys"`
}

// Inspect returns stats, counters and every key from least to most
// recently used.
func (s *Service) Inspect(_ context.Context) InspectResult {
	keys := s.store.Keys()
	if keys == nil {
		keys = []string{}
	}
	return InspectResult{
		Stats:    s.store.Stats(),
		Counters: s.store.Counters(),
		Keys:     keys,
	}
}
