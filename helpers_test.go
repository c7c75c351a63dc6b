package scorerender

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/alnah/go-scorerender/internal/magick"
	"github.com/alnah/go-scorerender/internal/notation"
	"github.com/alnah/go-scorerender/internal/process"
)

// demoSpec is a minimal local notation used across tests.
func demoSpec() notation.Spec {
	return notation.Spec{
		ID:        "demo",
		Name:      "Demo",
		Extension: ".demo",
		Header:    "%demo width={{.Width}}\n",
		Blacklist: []notation.Rule{
			{Name: "include", Pattern: regexp.MustCompile(`(?m)^\s*include\b`)},
		},
		StripCR: true,
		Width:   strconv.Itoa,
		Program: notation.Program{
			Binary: "demo-render",
			Args: func(input, output string) []string {
				return []string{"-o", output, input}
			},
		},
		Identity: process.Identity{
			Args:    []string{"--version"},
			Pattern: regexp.MustCompile(`demo-render`),
		},
		Convert: magick.Flags{Density: 72, Alpha: true},
		Magic:   ".demorc",
	}
}

func demoRegistry(t *testing.T, extra ...notation.Spec) *notation.Registry {
	t.Helper()
	reg, err := notation.NewRegistry(append([]notation.Spec{demoSpec()}, extra...)...)
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}
	return reg
}

// fakeRunner records commands and answers them without starting processes.
// The default behavior imitates a working renderer and converter.
type fakeRunner struct {
	mu    sync.Mutex
	calls []process.Command

	convertBanner  string
	rendererBanner string

	// render and convert replace the default handling of real invocations.
	render  func(cmd process.Command) (*process.Result, error)
	convert func(cmd process.Command) (*process.Result, error)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		convertBanner:  "Version: ImageMagick 6.9.12-98 Q16 x86_64",
		rendererBanner: "demo-render 1.0",
	}
}

func (f *fakeRunner) Run(ctx context.Context, cmd process.Command) (*process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	isConvert := strings.Contains(filepath.Base(cmd.Path), "convert")
	if len(cmd.Args) == 1 && (cmd.Args[0] == "-version" || cmd.Args[0] == "--version") {
		banner := f.rendererBanner
		if isConvert {
			banner = f.convertBanner
		}
		return &process.Result{Output: []byte(banner + "\n")}, nil
	}

	if isConvert {
		if f.convert != nil {
			return f.convert(cmd)
		}
		return writeOutput(strings.TrimPrefix(cmd.Args[len(cmd.Args)-1], "png:"), "\x89PNG")
	}
	if f.render != nil {
		return f.render(cmd)
	}
	return writeOutput(filepath.Join(cmd.Dir, notation.OutputName), "%!PS-Adobe-3.0")
}

func writeOutput(path, content string) (*process.Result, error) {
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return &process.Result{ExitCode: 1, Output: []byte(err.Error())}, nil
	}
	return &process.Result{}, nil
}

// invocations counts non-probe runs of the binary whose base name contains name.
func (f *fakeRunner) invocations(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if !strings.Contains(filepath.Base(c.Path), name) {
			continue
		}
		if len(c.Args) == 1 && strings.HasSuffix(c.Args[0], "version") {
			continue
		}
		n++
	}
	return n
}

// probes counts version probes of the binary whose base name contains name.
func (f *fakeRunner) probes(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Contains(filepath.Base(c.Path), name) && len(c.Args) == 1 && strings.HasSuffix(c.Args[0], "version") {
			n++
		}
	}
	return n
}

func (f *fakeRunner) lastCall(name string) process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if strings.Contains(filepath.Base(f.calls[i].Path), name) {
			return f.calls[i]
		}
	}
	return process.Command{}
}

// testEnv wires a Renderer to a fake runner, fake binaries and temp dirs.
type testEnv struct {
	cacheDir string
	tempDir  string
	convert  string
	renderer string
	runner   *fakeRunner
	r        *Renderer
}

// fakeBinary creates an executable placeholder; the fake runner never runs it.
func fakeBinary(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("writing fake binary: %v", err)
	}
	return path
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binaries rely on Unix permission bits")
	}

	root := t.TempDir()
	bin := filepath.Join(root, "bin")
	if err := os.Mkdir(bin, 0o755); err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		cacheDir: filepath.Join(root, "cache"),
		tempDir:  filepath.Join(root, "tmp"),
		convert:  fakeBinary(t, bin, "convert"),
		renderer: fakeBinary(t, bin, "demo-render"),
		runner:   newFakeRunner(),
	}

	base := []Option{
		WithCacheDir(env.cacheDir),
		WithTempDir(env.tempDir),
		WithConvertBin(env.convert),
		WithRegistry(demoRegistry(t)),
		WithProgram("demo", env.renderer),
		WithRunner(env.runner),
	}
	r, err := NewRenderer(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewRenderer error: %v", err)
	}
	env.r = r
	return env
}

// workDirs returns the entries left in the temp directory.
func (e *testEnv) workDirs(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("reading temp dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func demoRequest(source string) Request {
	return Request{Notation: "demo", Source: source, MaxWidth: 360}
}
