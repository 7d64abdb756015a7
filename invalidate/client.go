package invalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonwraymond/rendercache/cache"
	"github.com/jonwraymond/rendercache/observe"
	"github.com/jonwraymond/rendercache/resilience"
)

// DefaultEndpoint is the invalidate route of a render service in the
// default compose network.
const DefaultEndpoint = "http://frontend:4000/__admin/ssr-cache/invalidate"

// AdminKeyHeader carries the shared admin secret.
const AdminKeyHeader = "X-Admin-Key"

// ClientConfig configures a Client.
type ClientConfig struct {
	// Endpoint is the full URL of the invalidate route.
	// Default: DefaultEndpoint
	Endpoint string

	// AdminKey is sent in the X-Admin-Key header.
	AdminKey string

	// BearerToken, when set, is sent as "Authorization: Bearer <token>".
	BearerToken string

	// Timeout bounds each HTTP attempt.
	// Default: 5 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Default: 3. A negative value disables retries.
	MaxRetries int

	// BaseDelay is the wait before the first retry; it doubles each time.
	// Default: 1 second
	BaseDelay time.Duration

	// FailureThreshold is the number of consecutive failed attempts that
	// opens the circuit.
	// Default: 5
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open.
	// Default: 60 seconds
	RecoveryTimeout time.Duration

	// UserAgent is sent with every request.
	// Default: "rendercache-invalidator/1.0"
	UserAgent string

	// HTTPClient performs the requests.
	// Default: a client with no timeout of its own
	HTTPClient *http.Client

	// Logger receives send, retry and failure logs.
	// Default: observe.NopLogger()
	Logger observe.Logger
}

// Result is the render service's answer to an invalidation.
type Result struct {
	OK      bool         `json:"ok"`
	Kind    string       `json:"kind,omitempty"`
	Deleted []string     `json:"deleted,omitempty"`
	Stats   *cache.Stats `json:"stats,omitempty"`
}

// Client sends invalidation events to a remote render service.
//
// Contract:
// - Concurrency: safe for concurrent use; the circuit breaker is shared.
// - Errors: invalid events fail locally with a *ValidationError and are
//   never sent. 4xx answers wrap ErrRemoteRejected and are not retried.
//   An open circuit returns resilience.ErrCircuitOpen without a request.
type Client struct {
	config   ClientConfig
	breaker  *resilience.CircuitBreaker
	executor *resilience.Executor
}

// NewClient creates a new invalidation client.
func NewClient(config ClientConfig) *Client {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "rendercache-invalidator/1.0"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	logger := config.Logger.With(observe.F("component", "invalidate.client"))
	config.Logger = logger

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "invalidate",
		MaxFailures:  config.FailureThreshold,
		ResetTimeout: config.RecoveryTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn(context.Background(), "circuit breaker state changed",
				observe.F("breaker", name),
				observe.F("from", from.String()),
				observe.F("to", to.String()),
			)
		},
	})

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  config.MaxRetries + 1,
		InitialDelay: config.BaseDelay,
		MaxDelay:     config.BaseDelay << config.MaxRetries,
		Multiplier:   2,
		RetryIf:      retryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn(context.Background(), "invalidation attempt failed, retrying",
				observe.F("attempt", attempt),
				observe.F("error", err),
				observe.F("delay_ms", delay.Milliseconds()),
			)
		},
	})

	return &Client{
		config:  config,
		breaker: breaker,
		executor: resilience.NewExecutor(
			resilience.WithRetry(retry),
			resilience.WithCircuitBreaker(breaker),
			resilience.WithTimeout(config.Timeout),
		),
	}
}

func retryable(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrRemoteRejected) &&
		!errors.Is(err, resilience.ErrCircuitOpen) &&
		!errors.Is(err, context.Canceled)
}

// Send validates ev and posts it to the render service.
func (c *Client) Send(ctx context.Context, ev Event) (*Result, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(ev.Payload())
	if err != nil {
		return nil, fmt.Errorf("invalidate: encode payload: %w", err)
	}

	fields := []observe.Field{
		observe.F("kind", string(ev.Kind)),
		observe.F("slug", ev.TenantSlug),
	}
	start := time.Now()

	var result *Result
	err = c.executor.Execute(ctx, func(ctx context.Context) error {
		r, err := c.post(ctx, body)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	fields = append(fields, observe.F("duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			c.config.Logger.Warn(ctx, "invalidation skipped, circuit breaker is open", fields...)
		} else {
			c.config.Logger.Error(ctx, "invalidation failed", append(fields, observe.F("error", err))...)
		}
		return nil, err
	}

	c.config.Logger.Info(ctx, "invalidation sent", fields...)
	return result, nil
}

// SendAll sends each event in order and joins the errors. Earlier failures
// do not stop later events.
func (c *Client) SendAll(ctx context.Context, events []Event) ([]*Result, error) {
	results := make([]*Result, 0, len(events))
	var errs []error
	for _, ev := range events {
		r, err := c.Send(ctx, ev)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", ev.Kind, ev.TenantSlug, err))
			continue
		}
		results = append(results, r)
	}
	return results, errors.Join(errs...)
}

// Deck invalidates a tenant's landing page.
func (c *Client) Deck(ctx context.Context, slug string) (*Result, error) {
	return c.Send(ctx, Deck(slug))
}

// Background invalidates every page showing a tenant's background.
func (c *Client) Background(ctx context.Context, slug string) (*Result, error) {
	return c.Send(ctx, Background(slug))
}

// Page invalidates one of a tenant's nav pages.
func (c *Client) Page(ctx context.Context, slug string, category Category) (*Result, error) {
	return c.Send(ctx, Page(slug, category))
}

// ProjectPage invalidates a project page. slug may be empty.
func (c *Client) ProjectPage(ctx context.Context, id int64, slug string) (*Result, error) {
	return c.Send(ctx, ProjectPage(id, slug))
}

// BreakerStatus reports the circuit breaker state for monitoring.
func (c *Client) BreakerStatus() resilience.CircuitBreakerMetrics {
	return c.breaker.Metrics()
}

// Breaker returns the client's circuit breaker.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

func (c *Client) post(ctx context.Context, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("invalidate: build request: %w", err)
	}
	if c.config.AdminKey != "" {
		req.Header.Set(AdminKeyHeader, c.config.AdminKey)
	}
	if c.config.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("invalidate: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		snippet := raw
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		if resp.StatusCode < 500 {
			return nil, fmt.Errorf("%w: status %d: %s", ErrRemoteRejected, resp.StatusCode, snippet)
		}
		return nil, fmt.Errorf("invalidate: render service returned %d: %s", resp.StatusCode, snippet)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return &Result{OK: true}, nil
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("invalidate: decode response: %w", err)
	}
	return &result, nil
}
