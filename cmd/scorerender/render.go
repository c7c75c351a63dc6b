package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	scorerender "github.com/alnah/go-scorerender"
	"github.com/alnah/go-scorerender/internal/fileutil"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput           = errors.New("no input specified")
	ErrReadInput         = errors.New("failed to read input")
	ErrWriteOutput       = errors.New("failed to write output")
	ErrNoNotation        = errors.New("cannot tell the notation, use --notation")
	ErrUnknownSubcommand = errors.New("unknown subcommand")
	ErrUsage             = errors.New("invalid usage")
)

// stdinName stands for standard input in the file list.
const stdinName = "-"

// renderJob is one input file turned into a request.
type renderJob struct {
	input string
	req   scorerender.Request
}

// runRenderCmd executes the render command.
func runRenderCmd(ctx context.Context, args []string, env *Environment) error {
	f, files, err := parseRenderFlags("render", args, env.Stderr)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNoInput
	}
	cfg, err := loadSettings(&f.common, &f.engine, &f.request, env)
	if err != nil {
		return err
	}

	return withApp(cfg, env, func(a app) error {
		failed, firstErr := renderFiles(ctx, a, f, files, env)
		if failed > 0 {
			return fmt.Errorf("%d of %d render(s) failed: %w", failed, len(files), firstErr)
		}
		return nil
	})
}

// renderFiles renders every input through the pool, copies images to the
// output when one is set, and reports each outcome.
// It returns the number of failures and the first one.
func renderFiles(ctx context.Context, a app, f *renderFlags, files []string, env *Environment) (int, error) {
	var (
		jobs     []renderJob
		failed   int
		firstErr error
	)
	fail := func(input string, err error) {
		failed++
		if firstErr == nil {
			firstErr = err
		}
		printFailure(env.Stderr, input, err, f.common.verbose)
	}

	for _, input := range files {
		j, err := buildJob(a, f, input, env.Stdin)
		if err != nil {
			fail(input, err)
			continue
		}
		jobs = append(jobs, j)
	}

	reqs := make([]scorerender.Request, len(jobs))
	for i, j := range jobs {
		reqs[i] = j.req
	}

	single := len(files) == 1
	for _, br := range a.Pool.RenderAll(ctx, reqs) {
		input := jobs[br.Index].input
		if br.Err != nil {
			fail(input, br.Err)
			continue
		}

		path := br.Result.Path
		if f.output != "" {
			dst, err := outputPath(f.output, input, br.Result, single)
			if err == nil {
				err = copyFile(br.Result.Path, dst)
			}
			if err != nil {
				fail(input, err)
				continue
			}
			path = dst
		}

		if f.common.quiet {
			continue
		}
		if f.common.verbose {
			state := "rendered"
			if br.Result.CacheHit {
				state = "cache hit"
			}
			fmt.Fprintf(env.Stdout, "%s -> %s (%s, %s)\n", input, path, state, br.Result.Duration.Round(time.Millisecond))
			continue
		}
		fmt.Fprintln(env.Stdout, path)
	}
	return failed, firstErr
}

// buildJob reads an input and resolves its notation.
func buildJob(a app, f *renderFlags, input string, stdin io.Reader) (renderJob, error) {
	id := f.request.notation
	if id == "" && input != stdinName {
		id, _ = a.Renderer.NotationForFile(input)
	}
	if id == "" {
		return renderJob{}, ErrNoNotation
	}

	var (
		data []byte
		err  error
	)
	if input == stdinName {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input) // #nosec G304 -- user-provided path
	}
	if err != nil {
		return renderJob{}, fmt.Errorf("%w: %w", ErrReadInput, err)
	}

	return renderJob{
		input: input,
		req: scorerender.Request{
			Notation:    id,
			Source:      string(data),
			Invert:      a.Config.Render.Invert,
			Transparent: a.Config.Render.Transparent,
		},
	}, nil
}

// outputPath decides where a copy of the image goes. A single input with an
// output ending in .png is written to that file; otherwise output is a
// directory and the image takes the input's base name.
func outputPath(output, input string, res *scorerender.Result, single bool) (string, error) {
	if single && strings.EqualFold(filepath.Ext(output), ".png") {
		if err := os.MkdirAll(filepath.Dir(output), fileutil.DirPermissions); err != nil {
			return "", fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
		return output, nil
	}

	if err := os.MkdirAll(output, fileutil.DirPermissions); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	name := res.Filename
	if input != stdinName {
		base := filepath.Base(input)
		name = strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
	}
	return filepath.Join(output, name), nil
}

// copyFile copies src to dst through a temporary file in dst's directory.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src) // #nosec G304 -- path inside the cache directory
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".sr-copy-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if err = os.Chmod(tmp.Name(), fileutil.FilePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	return nil
}

// printFailure reports one failed input. Verbose mode adds the program
// output captured in the error.
func printFailure(w io.Writer, input string, err error, verbose bool) {
	fmt.Fprintf(w, "%s: %v%s\n", input, err, hintFor(err))
	var re *scorerender.RenderError
	if verbose && errors.As(err, &re) && len(re.Output) > 0 {
		for _, line := range strings.Split(strings.TrimRight(string(re.Output), "\n"), "\n") {
			fmt.Fprintf(w, "  | %s\n", line)
		}
	}
}
