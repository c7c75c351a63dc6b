// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-scorerender/internal/fileutil"
)

// IsInContainer detects a Docker container through the /.dockerenv marker.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForConverterUnusable returns hints when convert or a renderer binary cannot be used.
// envVar names the environment variable that overrides the binary path.
func ForConverterUnusable(program, envVar string) string {
	var hints []string
	if program == "convert" || program == "" {
		hints = append(hints, "install ImageMagick and ghostscript")
	} else {
		hints = append(hints, "install "+program)
	}
	if envVar != "" && os.Getenv(envVar) == "" {
		hints = append(hints, "or set "+envVar+" to its absolute path")
	}
	return formatHints(hints)
}

// ForConversionFailure returns hints for ImageMagick failures on PostScript.
// Distribution packages often ship a policy.xml that disables PS and EPS.
func ForConversionFailure() string {
	hints := []string{"check that ghostscript is installed and ImageMagick's policy.xml allows PS"}
	if IsInContainer() {
		hints = append(hints, "slim images often lack ghostscript fonts")
	}
	return formatHints(hints)
}

// ForTimeout returns a hint about increasing the render timeout.
func ForTimeout() string {
	return format("for large scores, use --timeout or render.timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config and creating a config under the user scorerender directory.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"
	for _, p := range searchedPaths {
		if strings.Contains(p, "scorerender") {
			hint += " or create " + p
			break
		}
	}
	return format(hint)
}

// ForDirectoryNotWritable returns hints for cache or temp directory errors.
func ForDirectoryNotWritable(flag string) string {
	return format("check the directory exists and is writable, or choose another with " + flag)
}

// ForUnknownNotation lists the registered notation ids.
func ForUnknownNotation(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForUnknownStyle lists the built-in page styles.
func ForUnknownStyle(builtin []string) string {
	if len(builtin) == 0 {
		return ""
	}
	return format("built-in styles: " + strings.Join(builtin, ", ") + ", or use --style-dir")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
