package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed styles/*.css
var styles embed.FS

// EmbeddedLoader serves the built-in styles.
type EmbeddedLoader struct{}

var _ StyleLoader = EmbeddedLoader{}

// LoadStyle returns a built-in style.
func (EmbeddedLoader) LoadStyle(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	content, err := styles.ReadFile("styles/" + name + ".css")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrStyleNotFound, name)
	}
	return string(content), nil
}

// Builtin lists the embedded style names in sorted order.
func Builtin() []string {
	entries, _ := fs.ReadDir(styles, "styles")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".css"))
	}
	sort.Strings(names)
	return names
}
