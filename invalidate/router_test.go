package invalidate

import (
	"errors"
	"slices"
	"testing"
)

func TestRouter_Resolve(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		name     string
		ev       Event
		existing []string
		want     []string
	}{
		{
			name: "deck",
			ev:   Deck("acme"),
			want: []string{"/acme"},
		},
		{
			name: "page one",
			ev:   Page("acme", CategoryPageOne),
			want: []string{"/page_one/acme", "/page_one?slug=acme"},
		},
		{
			name: "page two",
			ev:   Page("acme", CategoryPageTwo),
			want: []string{"/page_two/acme", "/page_two?slug=acme"},
		},
		{
			name: "project page without slug",
			ev:   ProjectPage(42, ""),
			want: []string{"/project_page/42"},
		},
		{
			name: "project page with slug",
			ev:   ProjectPage(42, "acme"),
			want: []string{"/project_page/42", "/project_page/42?slug=acme"},
		},
		{
			name: "background without existing keys",
			ev:   Background("acme"),
			want: []string{
				"/acme",
				"/page_one/acme", "/page_one?slug=acme",
				"/page_two/acme", "/page_two?slug=acme",
			},
		},
		{
			name: "background sweeps existing keys",
			ev:   Background("acme"),
			existing: []string{
				"/acme",
				"/other",
				"/page_one/acme",
				"/page_two/acme?slug=acme",
				"/project_page/9?slug=acme",
				"/search?q=x&slug=acme",
				"/page_one/other",
			},
			want: []string{
				"/acme",
				"/page_one/acme", "/page_one?slug=acme",
				"/page_two/acme", "/page_two?slug=acme",
				"/page_two/acme?slug=acme",
				"/project_page/9?slug=acme",
				"/search?q=x&slug=acme",
			},
		},
		{
			name:     "deck ignores existing keys",
			ev:       Deck("acme"),
			existing: []string{"/page_one/acme"},
			want:     []string{"/acme"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.ev, tt.existing)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRouter_ResolveInvalid(t *testing.T) {
	r := NewRouter()
	keys, err := r.Resolve(Page("acme", "page_three"), []string{"/acme"})
	if !errors.Is(err, ErrInvalidEventPayload) {
		t.Fatalf("Resolve() error = %v, want ErrInvalidEventPayload", err)
	}
	if keys != nil {
		t.Errorf("Resolve() keys = %v, want nil", keys)
	}
}

func TestRouter_BackgroundHeuristicIsTextual(t *testing.T) {
	r := NewRouter()
	got, err := r.Resolve(Background("acme"), []string{
		"/page_one/acme-corp",
		"/x?slug=acmeX",
		"/acme-corp",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// Prefix and substring matches over-select; exact landing match does not.
	if !slices.Contains(got, "/page_one/acme-corp") {
		t.Error("prefix match should include /page_one/acme-corp")
	}
	if !slices.Contains(got, "/x?slug=acmeX") {
		t.Error("substring match should include /x?slug=acmeX")
	}
	if slices.Contains(got, "/acme-corp") {
		t.Error("landing match is exact and must not include /acme-corp")
	}
}

func TestRouter_NoDuplicates(t *testing.T) {
	r := NewRouter()
	existing := []string{"/acme", "/page_one/acme", "/page_one?slug=acme", "/acme"}
	got, err := r.Resolve(Background("acme"), existing)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	seen := map[string]bool{}
	for _, k := range got {
		if seen[k] {
			t.Errorf("duplicate key %q in %v", k, got)
		}
		seen[k] = true
	}
}

func TestRouter_DoesNotMutateExisting(t *testing.T) {
	r := NewRouter()
	existing := []string{"/acme", "/page_one/acme"}
	before := slices.Clone(existing)

	if _, err := r.Resolve(Background("acme"), existing); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !slices.Equal(existing, before) {
		t.Errorf("existing modified: %v", existing)
	}
}
