//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID).
func KillProcessGroup(pid int) {
	// Best-effort cleanup; the caller still kills the leader directly.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// isolate puts the child in its own process group so that renderers which
// fork helpers (lilypond spawns gs) can be killed as a unit.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
