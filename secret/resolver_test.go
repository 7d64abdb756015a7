package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubProvider struct {
	name   string
	values map[string]string
	err    error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.values[ref], nil
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:env:ADMIN_CACHE_KEY", "env", "ADMIN_CACHE_KEY", true},
		{"secretref:file:/run/secrets/a:b", "file", "/run/secrets/a:b", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"plain-value", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, r, ok := ParseSecretRef(tt.in)
			if p != tt.provider || r != tt.ref || ok != tt.ok {
				t.Errorf("ParseSecretRef(%q) = (%q, %q, %v)", tt.in, p, r, ok)
			}
			if IsSecretRef(tt.in) != tt.ok {
				t.Errorf("IsSecretRef(%q) != %v", tt.in, tt.ok)
			}
		})
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	t.Setenv("SSR_TEST_PROVIDER", "stub")
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"admin": "k3y", "blank": ""}})
	ctx := context.Background()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain", in: "literal", want: "literal"},
		{name: "empty", in: "", want: ""},
		{name: "reference", in: "secretref:stub:admin", want: "k3y"},
		{name: "expanded reference", in: "secretref:${SSR_TEST_PROVIDER}:admin", want: "k3y"},
		{name: "unknown provider", in: "secretref:vault:admin", wantErr: ErrUnknownProvider},
		{name: "strict empty", in: "secretref:stub:blank", wantErr: ErrEmptyValue},
		{name: "missing env", in: "${SSR_TEST_UNSET_VAR}", wantErr: ErrMissingEnv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveValue(ctx, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveValue() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_NonStrictAllowsEmpty(t *testing.T) {
	r := NewResolver(false, &stubProvider{name: "stub", values: map[string]string{}})
	got, err := r.ResolveValue(context.Background(), "secretref:stub:none")
	if err != nil || got != "" {
		t.Errorf("ResolveValue() = %q, %v; want empty, nil", got, err)
	}
}

func TestResolver_ProviderError(t *testing.T) {
	boom := errors.New("backend down")
	r := NewResolver(true, &stubProvider{name: "stub", err: boom})
	if _, err := r.ResolveValue(context.Background(), "secretref:stub:x"); !errors.Is(err, boom) {
		t.Errorf("ResolveValue() error = %v, want %v", err, boom)
	}
}

func TestDefaultResolver(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jwt"), []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SSR_TEST_ADMIN_KEY", "from-env")

	r := NewDefaultResolver(dir)
	ctx := context.Background()

	if got, err := r.ResolveValue(ctx, "secretref:env:SSR_TEST_ADMIN_KEY"); err != nil || got != "from-env" {
		t.Errorf("env ref = %q, %v", got, err)
	}
	if got, err := r.ResolveValue(ctx, "secretref:file:jwt"); err != nil || got != "from-file" {
		t.Errorf("file ref = %q, %v", got, err)
	}
	if _, err := r.ResolveValue(ctx, "secretref:file:missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}
	if _, err := r.ResolveValue(ctx, "secretref:env:SSR_TEST_NOT_SET"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing env error = %v, want ErrNotFound", err)
	}
}
