package invalidate

import (
	"strconv"
	"strings"
)

// Router resolves events into the cache keys that must be deleted.
//
// Contract:
// - Concurrency: Router is stateless and safe for concurrent use.
// - Errors: an invalid event yields a *ValidationError and no keys, so a
//   rejected event never partially invalidates.
// - Ordering: fixed targets come first in rule order, followed by swept
//   keys in the order given; duplicates are dropped.
type Router struct{}

// NewRouter creates a new invalidation router.
func NewRouter() *Router {
	return &Router{}
}

// Resolve returns the keys to delete for ev. existing is the current key
// listing of the cache and is only consulted by background events.
func (r *Router) Resolve(ev Event, existing []string) ([]string, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	var targets []string
	switch ev.Kind {
	case KindDeck:
		targets = []string{landingKey(ev.TenantSlug)}

	case KindPage:
		targets = []string{
			pathKey(ev.Category, ev.TenantSlug),
			queryKey(ev.Category, ev.TenantSlug),
		}

	case KindProjectPage:
		base := "/project_page/" + strconv.FormatInt(ev.PageID, 10)
		targets = []string{base}
		if ev.TenantSlug != "" {
			targets = append(targets, base+"?slug="+ev.TenantSlug)
		}

	case KindBackground:
		targets = []string{landingKey(ev.TenantSlug)}
		for _, cat := range Categories {
			targets = append(targets, pathKey(cat, ev.TenantSlug), queryKey(cat, ev.TenantSlug))
		}
		for _, key := range existing {
			if matchesTenant(key, ev.TenantSlug) {
				targets = append(targets, key)
			}
		}
	}

	return dedupe(targets), nil
}

// matchesTenant is the broad sweep used for background changes, which can
// show up on URLs that cannot be enumerated up front. It is a textual
// heuristic: "/page_one/acme" also matches "/page_one/acme-corp", and
// "?slug=acme" matches "?slug=acmeX".
func matchesTenant(key, slug string) bool {
	if key == landingKey(slug) {
		return true
	}
	for _, cat := range Categories {
		if strings.HasPrefix(key, pathKey(cat, slug)) {
			return true
		}
	}
	return strings.Contains(key, "?slug="+slug) || strings.Contains(key, "&slug="+slug)
}

func landingKey(slug string) string {
	return "/" + slug
}

func pathKey(cat Category, slug string) string {
	return "/" + string(cat) + "/" + slug
}

func queryKey(cat Category, slug string) string {
	return "/" + string(cat) + "?slug=" + slug
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
