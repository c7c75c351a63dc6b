package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirLoader loads {name}.css files from a directory.
type DirLoader struct {
	base string
}

var _ StyleLoader = (*DirLoader)(nil)

// NewDirLoader checks that dir is a readable directory.
// Returns ErrInvalidStyleDir otherwise.
func NewDirLoader(dir string) (*DirLoader, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidStyleDir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStyleDir, err)
	}
	// Containment checks compare resolved paths.
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory does not exist: %s", ErrInvalidStyleDir, abs)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidStyleDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidStyleDir, abs)
	}
	if _, err := os.ReadDir(abs); err != nil {
		return nil, fmt.Errorf("%w: cannot read directory: %v", ErrInvalidStyleDir, err)
	}
	return &DirLoader{base: abs}, nil
}

// LoadStyle reads {dir}/{name}.css.
func (d *DirLoader) LoadStyle(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(d.base, name+".css")
	if err := d.contains(path); err != nil {
		return "", err
	}

	content, err := os.ReadFile(path) // #nosec G304 -- path contained in base
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
		}
		return "", fmt.Errorf("%w: %v", ErrStyleRead, err)
	}
	return string(content), nil
}

// contains rejects paths that resolve outside base, including through a
// symlink. A path that does not exist yet is checked as written.
func (d *DirLoader) contains(path string) error {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	if !strings.HasPrefix(path, d.base+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s escapes %s", ErrPathTraversal, path, d.base)
	}
	return nil
}
