package main

import (
	"io"
	"os"

	scorerender "github.com/alnah/go-scorerender"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string

	// RendererOptions are appended after the options built from config.
	RendererOptions []scorerender.Option
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Getenv:  os.Getenv,
		Environ: os.Environ,
	}
}
