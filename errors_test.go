package scorerender

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestKind - Names and sentinels
// ---------------------------------------------------------------------------

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind     Kind
		name     string
		sentinel error
	}{
		{KindInvalidInput, "InvalidInput", ErrInvalidInput},
		{KindDirectoryNotWritable, "DirectoryNotWritable", ErrDirectoryNotWritable},
		{KindTempFileNotWritable, "TempFileNotWritable", ErrTempFileNotWritable},
		{KindConverterUnusable, "ConverterUnusable", ErrConverterUnusable},
		{KindRenderingError, "RenderingError", ErrRenderingError},
		{KindImageConversionFailure, "ImageConversionFailure", ErrImageConversionFailure},
		{KindImageUnreadable, "ImageUnreadable", ErrImageUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.kind.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if tt.kind.Sentinel() != tt.sentinel {
				t.Errorf("Sentinel() = %v, want %v", tt.kind.Sentinel(), tt.sentinel)
			}
		})
	}

	if got := Kind(99).String(); got != "Kind(99)" {
		t.Errorf("unknown kind String() = %q", got)
	}
}

// ---------------------------------------------------------------------------
// TestRenderError - Formatting and matching
// ---------------------------------------------------------------------------

func TestRenderError(t *testing.T) {
	t.Parallel()

	cause := errors.New("exit status 1")
	err := error(&RenderError{
		Kind:     KindRenderingError,
		Notation: "lilypond",
		Detail:   "renderer exited with status 1",
		Err:      cause,
	})

	want := "lilypond: rendering error: renderer exited with status 1: exit status 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrRenderingError) {
		t.Error("errors.Is should match the kind sentinel")
	}
	if errors.Is(err, ErrConverterUnusable) {
		t.Error("errors.Is should not match another kind")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}

	wrapped := fmt.Errorf("batch item 3: %w", err)
	kind, ok := KindOf(wrapped)
	if !ok || kind != KindRenderingError {
		t.Errorf("KindOf(wrapped) = %v, %v", kind, ok)
	}
	if _, ok := KindOf(cause); ok {
		t.Error("KindOf on a plain error should report false")
	}
}

func TestRenderError_Minimal(t *testing.T) {
	t.Parallel()

	err := &RenderError{Kind: KindInvalidInput}
	if err.Error() != "invalid input" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("Unwrap() should be nil without a cause")
	}
	if strings.Contains((&RenderError{Kind: Kind(42)}).Error(), ": ") {
		t.Error("unknown kind without context should be a bare name")
	}
}
