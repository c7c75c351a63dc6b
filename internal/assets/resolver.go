package assets

import "errors"

// Resolver searches a style directory first, then the built-in styles.
type Resolver struct {
	custom   StyleLoader // nil without a style directory
	embedded StyleLoader
}

var _ StyleLoader = (*Resolver)(nil)

// NewResolver creates a Resolver. An empty dir uses built-in styles only.
func NewResolver(dir string) (*Resolver, error) {
	r := &Resolver{embedded: EmbeddedLoader{}}
	if dir != "" {
		d, err := NewDirLoader(dir)
		if err != nil {
			return nil, err
		}
		r.custom = d
	}
	return r, nil
}

// LoadStyle returns the custom style when the directory defines it.
// Only a missing style falls back: invalid names and read errors do not.
func (r *Resolver) LoadStyle(name string) (string, error) {
	if r.custom != nil {
		css, err := r.custom.LoadStyle(name)
		if err == nil || !errors.Is(err, ErrStyleNotFound) {
			return css, err
		}
	}
	return r.embedded.LoadStyle(name)
}

// HasCustom reports whether a style directory is configured.
func (r *Resolver) HasCustom() bool {
	return r.custom != nil
}
