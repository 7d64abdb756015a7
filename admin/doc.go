// Package admin implements the render cache control surface: warm, purge,
// inspect and invalidate.
//
// Service holds the operations and is usable without HTTP. Handler exposes
// them as a JSON API under /__admin/ssr-cache, with every route behind the
// auth middleware:
//
//	POST   /__admin/ssr-cache/warm        {"paths": ["/acme", "/page_one/acme"]}
//	DELETE /__admin/ssr-cache?path=/acme  purge one key (no path: purge all)
//	GET    /__admin/ssr-cache             stats, counters and keys
//	POST   /__admin/ssr-cache/invalidate  {"kind": "deck", "slug": "acme"}
package admin
