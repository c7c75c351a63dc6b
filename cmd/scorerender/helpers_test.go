package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	scorerender "github.com/alnah/go-scorerender"
	"github.com/alnah/go-scorerender/internal/notation"
	"github.com/alnah/go-scorerender/internal/process"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Stub programs
// ---------------------------------------------------------------------------

// stubBanner satisfies the identity pattern of every builtin program.
const stubBanner = "ImageMagick abcm2ps GNU LilyPond Mup PMW"

// stubRunner answers commands without starting processes. Version probes
// run without a working directory; renders and conversions run inside one.
// A fragment containing FAIL makes the renderer exit 1.
type stubRunner struct {
	renders atomic.Int32
}

func (s *stubRunner) Run(ctx context.Context, cmd process.Command) (*process.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cmd.Dir == "" {
		return &process.Result{Output: []byte(stubBanner + "\n")}, nil
	}

	if strings.Contains(filepath.Base(cmd.Path), "convert") {
		out := strings.TrimPrefix(cmd.Args[len(cmd.Args)-1], "png:")
		return writeStub(out, "\x89PNG stub")
	}

	s.renders.Add(1)
	input, err := os.ReadFile(filepath.Join(cmd.Dir, cmd.Args[len(cmd.Args)-1]))
	if err != nil {
		return &process.Result{ExitCode: 2, Output: []byte(err.Error())}, nil
	}
	if bytes.Contains(input, []byte("FAIL")) {
		return &process.Result{ExitCode: 1, Output: []byte("error: line 3: syntax error\n")}, nil
	}
	return writeStub(filepath.Join(cmd.Dir, notation.OutputName), "%!PS-Adobe-3.0")
}

func writeStub(path, content string) (*process.Result, error) {
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return &process.Result{ExitCode: 1, Output: []byte(err.Error())}, nil
	}
	return &process.Result{}, nil
}

// cli runs commands against stub programs and temporary directories.
type cli struct {
	root     string
	cacheDir string
	vars     map[string]string
	runner   *stubRunner
	stdin    string
}

// newCLI prepares fake convert and abcm2ps binaries and points the
// environment at them.
func newCLI(t *testing.T) *cli {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binaries rely on Unix permission bits")
	}

	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	if err := os.Mkdir(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	c := &cli{
		root:     root,
		cacheDir: filepath.Join(root, "cache"),
		runner:   &stubRunner{},
	}
	c.vars = map[string]string{
		envCacheDir:           c.cacheDir,
		envTempDir:            filepath.Join(root, "tmp"),
		envConvertBin:         fakeBinary(t, bin, "convert"),
		"SCORERENDER_ABC_BIN": fakeBinary(t, bin, "abcm2ps"),
		envLogLevel:           "error",
	}
	return c
}

func fakeBinary(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("writing fake binary: %v", err)
	}
	return path
}

// write creates a file under the test root and returns its path.
func (c *cli) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(c.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (c *cli) env(stdout, stderr *bytes.Buffer) *Environment {
	return &Environment{
		Stdin:  strings.NewReader(c.stdin),
		Stdout: stdout,
		Stderr: stderr,
		Getenv: func(k string) string { return c.vars[k] },
		Environ: func() []string {
			var kv []string
			for k, v := range c.vars {
				kv = append(kv, k+"="+v)
			}
			return kv
		},
		RendererOptions: []scorerender.Option{scorerender.WithRunner(c.runner)},
	}
}

// run executes one command line and returns the exit code and both outputs.
func (c *cli) run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = runMain(context.Background(), args, c.env(&out, &errOut))
	return code, out.String(), errOut.String()
}

// cachedImages lists the images in the cache directory.
func (c *cli) cachedImages(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(c.cacheDir, "sr-*.png"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

const tune = "X:1\nT:Scale\nK:C\nCDEF GABc|\n"
