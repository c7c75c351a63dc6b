package assets

import (
	"fmt"
	"strings"
)

// DefaultStyle is the built-in style used when none is named.
const DefaultStyle = "default"

// StyleLoader loads a stylesheet by name, without the .css extension.
type StyleLoader interface {
	LoadStyle(name string) (string, error)
}

// ValidateName rejects empty names and names that could select another file:
// path separators, dots and traversal.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidStyleName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidStyleName, name)
	}
	return nil
}
