package server

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonwraymond/rendercache/auth"
	"github.com/jonwraymond/rendercache/config"
	"github.com/jonwraymond/rendercache/gateway"
	"github.com/jonwraymond/rendercache/observe"
	"github.com/jonwraymond/rendercache/render"
)

const testKey = "s3cret"

type stubEngine struct {
	calls atomic.Int32
	body  string
	fail  atomic.Bool
}

func (e *stubEngine) Render(ctx context.Context, url string, rc render.Context) ([]byte, error) {
	e.calls.Add(1)
	if e.fail.Load() {
		return nil, errors.New("engine down")
	}
	return []byte(e.body), nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.StaticDir = ""
	cfg.Admin.Key = testKey
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, opts Options) (*Server, *stubEngine) {
	t.Helper()
	engine := &stubEngine{body: "<html>" + strings.Repeat("page ", 400) + "</html>"}
	if opts.Engine == nil {
		opts.Engine = engine
	}
	s, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, engine
}

func serve(t *testing.T, h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Routes(t *testing.T) {
	s, engine := newTestServer(t, testConfig(), Options{})
	h := s.Handler()

	tests := []struct {
		name       string
		method     string
		target     string
		header     http.Header
		wantStatus int
	}{
		{"liveness", http.MethodGet, "/__healthz", nil, http.StatusOK},
		{"readiness", http.MethodGet, "/__readyz", nil, http.StatusOK},
		{"detail", http.MethodGet, "/__health", nil, http.StatusOK},
		{"admin without key", http.MethodGet, "/__admin/ssr-cache", nil, http.StatusUnauthorized},
		{"admin with key", http.MethodGet, "/__admin/ssr-cache", http.Header{"X-Admin-Key": {testKey}}, http.StatusOK},
		{"metrics absent", http.MethodGet, MetricsPath, nil, http.StatusOK},
		{"page", http.MethodGet, "/acme", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, tt.method, tt.target, tt.header)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	// Without a registry /__metrics falls through to the page handler.
	if got := engine.calls.Load(); got != 2 {
		t.Errorf("engine calls = %d, want 2", got)
	}
}

func TestServer_PageCaching(t *testing.T) {
	s, engine := newTestServer(t, testConfig(), Options{})
	h := s.Handler()

	first := serve(t, h, http.MethodGet, "/acme", nil)
	second := serve(t, h, http.MethodGet, "/acme", nil)

	if got := first.Header().Get(gateway.HeaderCache); got != "MISS" {
		t.Errorf("first = %q, want MISS", got)
	}
	if got := second.Header().Get(gateway.HeaderCache); got != "HIT" {
		t.Errorf("second = %q, want HIT", got)
	}
	if got := engine.calls.Load(); got != 1 {
		t.Errorf("engine calls = %d, want 1", got)
	}
	if st := s.Cache().Stats(); st.Entries != 1 {
		t.Errorf("Entries = %d, want 1", st.Entries)
	}
}

func TestServer_AdminSharesCache(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), Options{})
	h := s.Handler()

	serve(t, h, http.MethodGet, "/acme", nil)
	rec := serve(t, h, http.MethodDelete, "/__admin/ssr-cache", http.Header{"X-Admin-Key": {testKey}})
	if rec.Code != http.StatusOK {
		t.Fatalf("purge status = %d", rec.Code)
	}
	if st := s.Cache().Stats(); st.Entries != 0 {
		t.Errorf("Entries after purge = %d, want 0", st.Entries)
	}
}

func TestServer_AdminBearerToken(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.Key = ""
	cfg.Admin.JWTSecret = "jwt-secret-for-tests"
	s, _ := newTestServer(t, cfg, Options{})

	token, err := auth.IssueToken([]byte(cfg.Admin.JWTSecret), "ci", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	rec := serve(t, s.Handler(), http.MethodGet, "/__admin/ssr-cache", http.Header{"Authorization": {"Bearer " + token}})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestServer_Compression(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), Options{})

	rec := serve(t, s.Handler(), http.MethodGet, "/acme", http.Header{"Accept-Encoding": {"gzip"}})
	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.HasPrefix(string(body), "<html>page") {
		t.Errorf("body = %.20q...", body)
	}

	cfg := testConfig()
	cfg.Server.Compress = false
	plain, _ := newTestServer(t, cfg, Options{})
	rec = serve(t, plain.Handler(), http.MethodGet, "/acme", http.Header{"Accept-Encoding": {"gzip"}})
	if got := rec.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("Content-Encoding = %q, want none", got)
	}
}

func TestServer_CircuitOpensOnFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Render.BreakerFailures = 2
	cfg.Render.BreakerReset = time.Hour
	s, engine := newTestServer(t, cfg, Options{})
	engine.fail.Store(true)
	h := s.Handler()

	for i := 0; i < 2; i++ {
		if rec := serve(t, h, http.MethodGet, "/acme", nil); rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
	}

	rec := serve(t, h, http.MethodGet, "/acme", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "3600" {
		t.Errorf("Retry-After = %q, want 3600", got)
	}
	if rec := serve(t, h, http.MethodGet, "/__readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness = %d, want 503 while the circuit is open", rec.Code)
	}
}

func TestServer_Apply(t *testing.T) {
	var logs strings.Builder
	logger, err := observe.NewLoggerWithWriter("info", &logs)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := newTestServer(t, testConfig(), Options{Logger: logger})
	h := s.Handler()

	for _, p := range []string{"/a", "/b", "/c"} {
		serve(t, h, http.MethodGet, p, nil)
	}

	cfg := testConfig()
	cfg.Cache.MaxEntries = 1
	cfg.Observe.LogLevel = "debug"
	s.Apply(cfg)

	if got := s.Cache().Keys(); len(got) != 1 || got[0] != "/c" {
		t.Errorf("Keys() = %v, want [/c]", got)
	}
	if got := logger.Level(); got != "debug" {
		t.Errorf("log level = %q, want debug", got)
	}
	if !strings.Contains(logs.String(), "config applied") {
		t.Errorf("expected a config applied entry, got %s", logs.String())
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := observe.NewObserver(context.Background(), observe.Config{
		ServiceName: "test",
		Metrics: observe.MetricsConfig{
			Enabled:    true,
			Exporter:   "prometheus",
			Registerer: reg,
		},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })

	s, _ := newTestServer(t, testConfig(), Options{Observer: obs, Registry: reg})
	h := s.Handler()
	serve(t, h, http.MethodGet, "/acme", nil)
	serve(t, h, http.MethodGet, "/acme", nil)

	rec := serve(t, h, http.MethodGet, MetricsPath, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"ssr_cache_entries", "ssr_cache_hits", "ssr_render_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestServer_ServeShutsDown(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/__healthz")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestNewAuthenticator(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.AdminConfig
		configured bool
	}{
		{"nothing", config.AdminConfig{}, false},
		{"shared key", config.AdminConfig{Key: "k"}, true},
		{"jwt only", config.AdminConfig{JWTSecret: "s"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewAuthenticator(tt.cfg).Configured(); got != tt.configured {
				t.Errorf("Configured() = %v, want %v", got, tt.configured)
			}
		})
	}
}
