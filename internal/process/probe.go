package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// Sentinel errors for binary probing.
var (
	ErrNotFound         = errors.New("program not found")
	ErrNotExecutable    = errors.New("program is not executable")
	ErrIdentityMismatch = errors.New("program identity check failed")
)

// probeTimeout caps a version probe; a hanging binary is not usable.
const probeTimeout = 10 * time.Second

// Identity describes how to recognize a program from its version output.
type Identity struct {
	Args    []string       // e.g. ["-version"] or ["--version"]
	Pattern *regexp.Regexp // must match somewhere in the combined output
}

// Probe verifies that path is an executable file and that it really is the
// expected program. It returns the first output line matching the pattern,
// which is usually the version banner.
func Probe(ctx context.Context, r Runner, path string, id Identity) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no path configured", ErrNotFound)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if info.IsDir() || !isExecutable(info) {
		return "", fmt.Errorf("%w: %s", ErrNotExecutable, path)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	// Exit status is ignored: mup and pmw exit non-zero after printing their banner.
	res, err := r.Run(ctx, Command{Path: path, Args: id.Args})
	if err != nil {
		return "", fmt.Errorf("probing %s: %w", path, err)
	}

	if id.Pattern == nil {
		return firstLine(res.Output), nil
	}

	sc := bufio.NewScanner(bytes.NewReader(res.Output))
	for sc.Scan() {
		if line := sc.Text(); id.Pattern.MatchString(line) {
			return strings.TrimSpace(line), nil
		}
	}
	return "", fmt.Errorf("%w: %s does not look like %s (got %q)",
		ErrIdentityMismatch, path, id.Pattern.String(), firstLine(res.Output))
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
