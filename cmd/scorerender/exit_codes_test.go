package main

// Notes:
// - exitCodeFor: we test the mapping of every render kind, the CLI and
//   config sentinels, and wrapped errors. Kinds take priority over sentinels.
// - hintFor: we test that the hint names the right program or flag. Exact
//   wording is covered in the hints package.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	scorerender "github.com/alnah/go-scorerender"
	"github.com/alnah/go-scorerender/internal/assets"
	"github.com/alnah/go-scorerender/internal/config"
	"github.com/alnah/go-scorerender/internal/notation"
	"github.com/alnah/go-scorerender/internal/process"
)

func renderErr(kind scorerender.Kind, id, detail string, err error) error {
	return &scorerender.RenderError{Kind: kind, Notation: id, Detail: detail, Err: err}
}

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},
		{"generic error", errors.New("boom"), ExitGeneral},
		{"context canceled", context.Canceled, ExitGeneral},

		{"invalid input", renderErr(scorerender.KindInvalidInput, "abc", "", nil), ExitUsage},
		{"directory not writable", renderErr(scorerender.KindDirectoryNotWritable, "abc", "", nil), ExitIO},
		{"temp file not writable", renderErr(scorerender.KindTempFileNotWritable, "abc", "", nil), ExitIO},
		{"image unreadable", renderErr(scorerender.KindImageUnreadable, "abc", "", nil), ExitIO},
		{"converter unusable", renderErr(scorerender.KindConverterUnusable, "abc", "renderer", nil), ExitRender},
		{"rendering error", renderErr(scorerender.KindRenderingError, "abc", "", nil), ExitRender},
		{"image conversion", renderErr(scorerender.KindImageConversionFailure, "abc", "", nil), ExitRender},

		{"kind wins over wrapped sentinel", renderErr(scorerender.KindRenderingError, "abc", "", os.ErrNotExist), ExitRender},
		{"wrapped render error", fmt.Errorf("2 of 3 render(s) failed: %w", renderErr(scorerender.KindInvalidInput, "abc", "", nil)), ExitUsage},

		{"not exist", fmt.Errorf("open x: %w", os.ErrNotExist), ExitIO},
		{"permission", os.ErrPermission, ExitIO},
		{"no input", ErrNoInput, ExitIO},
		{"read input", fmt.Errorf("%w: %w", ErrReadInput, errors.New("eof")), ExitIO},
		{"write output", ErrWriteOutput, ExitIO},

		{"config not found", fmt.Errorf("loading config: %w", config.ErrConfigNotFound), ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"invalid value", config.ErrInvalidValue, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"unknown notation", notation.ErrUnknownNotation, ExitUsage},
		{"no notation", ErrNoNotation, ExitUsage},
		{"unknown subcommand", ErrUnknownSubcommand, ExitUsage},
		{"usage", ErrUsage, ExitUsage},
		{"style not found", assets.ErrStyleNotFound, ExitUsage},
		{"style dir", assets.ErrInvalidStyleDir, ExitUsage},
		{"style read", assets.ErrStyleRead, ExitIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExitCodeConstants - Exit code values are stable
// ---------------------------------------------------------------------------

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	codes := map[string]int{
		"ExitSuccess": ExitSuccess,
		"ExitGeneral": ExitGeneral,
		"ExitUsage":   ExitUsage,
		"ExitIO":      ExitIO,
		"ExitRender":  ExitRender,
	}
	want := map[string]int{
		"ExitSuccess": 0,
		"ExitGeneral": 1,
		"ExitUsage":   2,
		"ExitIO":      3,
		"ExitRender":  4,
	}
	for name, code := range codes {
		if code != want[name] {
			t.Errorf("%s = %d, want %d", name, code, want[name])
		}
	}
}

// ---------------------------------------------------------------------------
// TestHintFor - Actionable hints
// ---------------------------------------------------------------------------

func TestHintFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "missing renderer names the binary and env var",
			err:      renderErr(scorerender.KindConverterUnusable, "abc", "renderer", process.ErrNotFound),
			contains: []string{"abcm2ps", "SCORERENDER_ABC_BIN"},
		},
		{
			name:     "missing converter names ImageMagick",
			err:      renderErr(scorerender.KindConverterUnusable, "abc", "image converter", process.ErrNotFound),
			contains: []string{"ImageMagick", envConvertBin},
		},
		{
			name:     "conversion failure mentions policy",
			err:      renderErr(scorerender.KindImageConversionFailure, "abc", "", nil),
			contains: []string{"policy.xml"},
		},
		{
			name:     "timeout suggests the flag",
			err:      renderErr(scorerender.KindRenderingError, "abc", "", process.ErrTimeout),
			contains: []string{"--timeout"},
		},
		{
			name:     "directory names both flags",
			err:      renderErr(scorerender.KindDirectoryNotWritable, "abc", "", nil),
			contains: []string{"--cache-dir", "--temp-dir"},
		},
		{
			name:     "config not found",
			err:      fmt.Errorf("loading config: %w", config.ErrConfigNotFound),
			contains: []string{"--config"},
		},
		{
			name:     "unknown notation lists ids",
			err:      renderErr(scorerender.KindInvalidInput, "xyz", "", notation.ErrUnknownNotation),
			contains: []string{"abc", "lilypond", "guido"},
		},
		{
			name:     "unknown style lists built-ins",
			err:      fmt.Errorf("%w: \"neon\"", assets.ErrStyleNotFound),
			contains: []string{"dark", "default", "--style-dir"},
		},
		{
			name:     "no notation lists ids",
			err:      ErrNoNotation,
			contains: []string{"abc", "mup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := hintFor(tt.err)
			if !strings.HasPrefix(got, "\n  hint: ") {
				t.Fatalf("hintFor() = %q, want a hint", got)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("hintFor() = %q, want it to contain %q", got, s)
				}
			}
		})
	}

	t.Run("plain rendering error has no hint", func(t *testing.T) {
		t.Parallel()

		if got := hintFor(renderErr(scorerender.KindRenderingError, "abc", "", nil)); got != "" {
			t.Errorf("hintFor() = %q, want empty", got)
		}
	})
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	if got := envName("lilypond", "MAGIC_FILE"); got != "SCORERENDER_LILYPOND_MAGIC_FILE" {
		t.Errorf("envName() = %q", got)
	}
}
