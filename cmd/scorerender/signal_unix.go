//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop a running command, including a long watch.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
