//go:build !windows

package process

import "os"

// isExecutable reports whether any execute bit is set.
func isExecutable(info os.FileInfo) bool {
	return info.Mode().Perm()&0o111 != 0
}
