//go:build windows

package process

import (
	"os"
	"path/filepath"
	"strings"
)

// isExecutable checks the extension since Windows has no execute bit.
func isExecutable(info os.FileInfo) bool {
	switch strings.ToLower(filepath.Ext(info.Name())) {
	case ".exe", ".bat", ".cmd", ".com":
		return true
	}
	return false
}
