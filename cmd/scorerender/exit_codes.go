package main

import (
	"errors"
	"os"
	"strings"

	scorerender "github.com/alnah/go-scorerender"
	"github.com/alnah/go-scorerender/internal/assets"
	"github.com/alnah/go-scorerender/internal/config"
	"github.com/alnah/go-scorerender/internal/hints"
	"github.com/alnah/go-scorerender/internal/notation"
	"github.com/alnah/go-scorerender/internal/process"
)

// Exit codes for the scorerender CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Every request succeeded
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or fragment
	ExitIO      = 3 // Input missing, directory or file not writable
	ExitRender  = 4 // Renderer or ImageMagick missing or failing
)

// exitCodeFor returns the appropriate exit code for an error.
// Render errors are classified by Kind before falling back to sentinels.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if kind, ok := scorerender.KindOf(err); ok {
		switch kind {
		case scorerender.KindInvalidInput:
			return ExitUsage
		case scorerender.KindDirectoryNotWritable,
			scorerender.KindTempFileNotWritable,
			scorerender.KindImageUnreadable:
			return ExitIO
		case scorerender.KindConverterUnusable,
			scorerender.KindRenderingError,
			scorerender.KindImageConversionFailure:
			return ExitRender
		}
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, assets.ErrStyleRead) {
		return ExitIO
	}

	// Usage/config errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, notation.ErrUnknownNotation) ||
		errors.Is(err, ErrNoNotation) ||
		errors.Is(err, ErrUnknownSubcommand) ||
		errors.Is(err, ErrUsage) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrInvalidStyleName) ||
		errors.Is(err, assets.ErrInvalidStyleDir) ||
		errors.Is(err, assets.ErrPathTraversal) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	var re *scorerender.RenderError
	if errors.As(err, &re) {
		switch re.Kind {
		case scorerender.KindConverterUnusable:
			if re.Detail == "renderer" {
				program := re.Notation
				if n, err := notation.Default().Get(re.Notation); err == nil && n.Program.Binary != "" {
					program = n.Program.Binary
				}
				return hints.ForConverterUnusable(program, envName(re.Notation, "BIN"))
			}
			return hints.ForConverterUnusable("convert", envConvertBin)
		case scorerender.KindImageConversionFailure:
			return hints.ForConversionFailure()
		case scorerender.KindRenderingError:
			if errors.Is(err, process.ErrTimeout) {
				return hints.ForTimeout()
			}
		case scorerender.KindDirectoryNotWritable:
			return hints.ForDirectoryNotWritable("--cache-dir or --temp-dir")
		}
	}

	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(config.SearchPaths(config.AppName))
	case errors.Is(err, assets.ErrStyleNotFound):
		return hints.ForUnknownStyle(assets.Builtin())
	case errors.Is(err, notation.ErrUnknownNotation), errors.Is(err, ErrNoNotation):
		return hints.ForUnknownNotation(notation.Default().IDs())
	}
	return ""
}

// envName returns the per-notation environment variable for suffix.
func envName(id, suffix string) string {
	return envPrefix + strings.ToUpper(id) + "_" + suffix
}
