// Package process runs external programs without a shell and reports their
// exit status and combined output as data.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Sentinel errors for process execution.
var (
	ErrStart    = errors.New("failed to start program")
	ErrTimeout  = errors.New("program timed out")
	ErrCanceled = errors.New("program canceled")
)

// waitDelay bounds how long Wait blocks on output pipes after the child was
// killed. Grandchildren outside the process group may hold them open.
const waitDelay = 2 * time.Second

// Command describes one program invocation.
// Args are passed verbatim to the program; no shell is involved.
type Command struct {
	Path string
	Args []string
	Dir  string   // working directory, required for renderers that read magic files
	Env  []string // extra KEY=VALUE pairs appended to the parent environment
}

// Result holds the observable outcome of a finished program.
type Result struct {
	ExitCode int
	Output   []byte // stdout and stderr, interleaved
	Duration time.Duration
}

// Runner abstracts command execution to enable testing without real subprocesses.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// Compile-time interface check.
var _ Runner = (*ExecRunner)(nil)

// Run starts the program and waits for it.
// A non-zero exit status is returned in Result with a nil error. Errors are
// reserved for programs that could not start or were stopped by ctx; in the
// latter case the whole process group is killed and the partial Result is
// still returned.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...) // #nosec G204 -- path comes from configuration, args are built, not user text
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay
	isolate(cmd)
	cmd.Cancel = func() error {
		KillProcessGroup(cmd.Process.Pid)
		return cmd.Process.Kill()
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStart, c.Path, err)
	}
	waitErr := cmd.Wait()

	res := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Output:   out.Bytes(),
		Duration: time.Since(start),
	}

	if err := ctx.Err(); err != nil {
		return res, contextError(err)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, fmt.Errorf("waiting for %s: %w", c.Path, waitErr)
	}
	return res, nil
}

// contextError maps a context error onto the package sentinels while keeping
// the original error in the chain.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}
