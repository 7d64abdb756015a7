// Command ssrcache-invalidate sends invalidation events to a running
// ssrcache.
//
// Usage:
//
//	ssrcache-invalidate -kind deck -slug acme
//	ssrcache-invalidate -kind page -slug acme -category page_two
//	ssrcache-invalidate -kind project_page -id 42
//	ssrcache-invalidate -rename old-slug -slug new-slug
//
// The admin key is read from -key or ADMIN_CACHE_KEY. With -jwt-secret (or
// SSR_ADMIN_JWT_SECRET) a short-lived bearer token is sent instead.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonwraymond/rendercache/auth"
	"github.com/jonwraymond/rendercache/config"
	"github.com/jonwraymond/rendercache/invalidate"
	"github.com/jonwraymond/rendercache/observe"
)

const envJWTSecret = "SSR_ADMIN_JWT_SECRET"

type options struct {
	endpoint  string
	key       string
	jwtSecret string
	kind      string
	slug      string
	category  string
	id        string
	rename    string
	timeout   time.Duration
	retries   int
	logLevel  string
}

func main() {
	var o options
	flag.StringVar(&o.endpoint, "endpoint", invalidate.DefaultEndpoint, "Invalidate URL of the render service")
	flag.StringVar(&o.key, "key", os.Getenv(config.EnvAdminKey), "Admin key")
	flag.StringVar(&o.jwtSecret, "jwt-secret", os.Getenv(envJWTSecret), "HS256 secret; sends a bearer token instead of the key")
	flag.StringVar(&o.kind, "kind", "", "Event kind: deck, page, project_page or background")
	flag.StringVar(&o.slug, "slug", "", "Tenant slug")
	flag.StringVar(&o.category, "category", "", "Page category: page_one or page_two")
	flag.StringVar(&o.id, "id", "", "Project page id")
	flag.StringVar(&o.rename, "rename", "", "Old slug; sends every event for a rename to -slug")
	flag.DurationVar(&o.timeout, "timeout", 5*time.Second, "Per-attempt timeout")
	flag.IntVar(&o.retries, "retries", 3, "Retries after the first attempt; 0 disables")
	flag.StringVar(&o.logLevel, "log-level", "warn", "Log level")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, o); err != nil {
		fmt.Fprintf(os.Stderr, "ssrcache-invalidate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	events, err := buildEvents(o)
	if err != nil {
		return err
	}

	logger, err := observe.NewLogger(o.logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := invalidate.ClientConfig{
		Endpoint:   o.endpoint,
		AdminKey:   o.key,
		Timeout:    o.timeout,
		MaxRetries: maxRetries(o.retries),
		Logger:     logger,
	}
	if o.jwtSecret != "" {
		token, err := auth.IssueToken([]byte(o.jwtSecret), "ssrcache-invalidate", time.Minute)
		if err != nil {
			return err
		}
		cfg.AdminKey = ""
		cfg.BearerToken = token
	}

	results, err := invalidate.NewClient(cfg).SendAll(ctx, events)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, r := range results {
		_ = enc.Encode(r)
	}
	return err
}

// maxRetries maps the flag onto ClientConfig, where zero picks the default
// and a negative count disables retries.
func maxRetries(flagValue int) int {
	if flagValue <= 0 {
		return -1
	}
	return flagValue
}

func buildEvents(o options) ([]invalidate.Event, error) {
	if o.rename != "" {
		if o.slug == "" {
			return nil, errors.New("-rename needs the new -slug")
		}
		return invalidate.SlugChanged(o.rename, o.slug), nil
	}

	ev := invalidate.Event{
		Kind:       invalidate.Kind(o.kind),
		TenantSlug: o.slug,
		Category:   invalidate.Category(o.category),
	}
	if o.id != "" {
		id, err := strconv.ParseInt(o.id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("-id must be an integer: %w", err)
		}
		ev.PageID = id
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return []invalidate.Event{ev}, nil
}
