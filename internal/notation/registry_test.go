package notation

import (
	"errors"
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// TestNewRegistry - Construction and validation
// ---------------------------------------------------------------------------

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	named := func(id string) Spec {
		s := demoSpec()
		s.ID = id
		return s
	}

	tests := []struct {
		name    string
		specs   []Spec
		wantErr error
	}{
		{"empty registry", nil, nil},
		{"single", []Spec{named("demo")}, nil},
		{"duplicate", []Spec{named("demo"), named("demo")}, ErrDuplicateID},
		{"empty id", []Spec{named("")}, ErrInvalidSpec},
		{"uppercase id", []Spec{named("Demo")}, ErrInvalidSpec},
		{"dash in id", []Spec{named("de-mo")}, ErrInvalidSpec},
		{"no extension dot", func() []Spec { s := named("demo"); s.Extension = "demo"; return []Spec{s} }(), ErrInvalidSpec},
		{"no width", func() []Spec { s := named("demo"); s.Width = nil; return []Spec{s} }(), ErrInvalidSpec},
		{"no program", func() []Spec { s := named("demo"); s.Program = Program{}; return []Spec{s} }(), ErrInvalidSpec},
		{"nil rule pattern", func() []Spec { s := named("demo"); s.Blacklist = []Rule{{Name: "x"}}; return []Spec{s} }(), ErrInvalidSpec},
		{"bad template", func() []Spec { s := named("demo"); s.Header = "{{"; return []Spec{s} }(), ErrInvalidSpec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRegistry(tt.specs...)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NewRegistry error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewRegistry error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRegistry_Lookup - Get, IDs and ByExtension
// ---------------------------------------------------------------------------

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	zeta := demoSpec()
	zeta.ID = "zeta"
	zeta.Extension = ".ZT"
	r, err := NewRegistry(zeta, demoSpec())
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}

	if got := r.IDs(); !reflect.DeepEqual(got, []string{"demo", "zeta"}) {
		t.Errorf("IDs() = %v, want sorted ids", got)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	n, err := r.Get("demo")
	if err != nil || n.ID != "demo" {
		t.Errorf("Get(demo) = %v, %v", n, err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownNotation) {
		t.Errorf("Get(nope) error = %v, want ErrUnknownNotation", err)
	}

	if n, ok := r.ByExtension(".zt"); !ok || n.ID != "zeta" {
		t.Errorf("ByExtension(.zt) = %v, %v", n, ok)
	}
	if _, ok := r.ByExtension(".txt"); ok {
		t.Error("ByExtension(.txt) should not match")
	}

	ids := r.IDs()
	ids[0] = "changed"
	if r.IDs()[0] != "demo" {
		t.Error("IDs() should return a copy")
	}
}
