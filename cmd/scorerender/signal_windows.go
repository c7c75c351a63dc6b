//go:build windows

package main

import "os"

// shutdownSignals stop a running command. Windows only delivers Ctrl+C.
var shutdownSignals = []os.Signal{os.Interrupt}
