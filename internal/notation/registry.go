package notation

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the read-only set of notations known to a renderer.
type Registry struct {
	byID  map[string]*Notation
	byExt map[string]*Notation
	ids   []string
}

// NewRegistry validates and compiles specs. Ids must be unique and usable
// in cache file names. Extensions are matched case-insensitively; the first
// spec claiming an extension wins.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{
		byID:  make(map[string]*Notation, len(specs)),
		byExt: make(map[string]*Notation, len(specs)),
	}
	for _, s := range specs {
		if err := validate(s); err != nil {
			return nil, err
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
		n, err := compile(s)
		if err != nil {
			return nil, err
		}
		r.byID[s.ID] = n
		r.ids = append(r.ids, s.ID)
		ext := strings.ToLower(s.Extension)
		if _, taken := r.byExt[ext]; !taken {
			r.byExt[ext] = n
		}
	}
	sort.Strings(r.ids)
	return r, nil
}

// Default returns a registry of the built-in notations.
func Default() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic("notation: invalid builtin spec: " + err.Error())
	}
	return r
}

func validate(s Spec) error {
	switch {
	case s.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidSpec)
	case !validID(s.ID):
		return fmt.Errorf("%w: id %q must be lowercase letters, digits or underscores", ErrInvalidSpec, s.ID)
	case s.Extension == "" || !strings.HasPrefix(s.Extension, "."):
		return fmt.Errorf("%w: %s: extension must start with a dot", ErrInvalidSpec, s.ID)
	case s.Width == nil:
		return fmt.Errorf("%w: %s: missing width conversion", ErrInvalidSpec, s.ID)
	case s.Remote == nil && s.Program.Args == nil:
		return fmt.Errorf("%w: %s: needs a program or a remote endpoint", ErrInvalidSpec, s.ID)
	}
	for i, rule := range s.Blacklist {
		if rule.Pattern == nil {
			return fmt.Errorf("%w: %s: blacklist rule %d has no pattern", ErrInvalidSpec, s.ID, i)
		}
	}
	return nil
}

func validID(id string) bool {
	for _, c := range id {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

// Get returns the notation registered under id.
func (r *Registry) Get(id string) (*Notation, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotation, id)
	}
	return n, nil
}

// ByExtension returns the notation whose source extension matches ext
// (with the leading dot).
func (r *Registry) ByExtension(ext string) (*Notation, bool) {
	n, ok := r.byExt[strings.ToLower(ext)]
	return n, ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of registered notations.
func (r *Registry) Len() int {
	return len(r.ids)
}
