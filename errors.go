package scorerender

import (
	"errors"
	"fmt"
)

// Kind classifies why a render failed. The set is closed: every error
// returned by Renderer.Render is a *RenderError carrying one of these kinds.
type Kind int

// Failure kinds.
const (
	// KindInvalidInput covers empty fragments, blacklisted constructs,
	// unknown notations and out-of-range widths. Never retried.
	KindInvalidInput Kind = iota + 1
	// KindDirectoryNotWritable means the cache or temp directory is missing
	// or read-only. Fatal until configuration is fixed.
	KindDirectoryNotWritable
	// KindTempFileNotWritable is a transient failure writing the work files.
	KindTempFileNotWritable
	// KindConverterUnusable means a configured binary is missing, not
	// executable, or is not the expected program.
	KindConverterUnusable
	// KindRenderingError means the renderer failed, timed out, or produced
	// no output. Its captured output is attached.
	KindRenderingError
	// KindImageConversionFailure means ImageMagick failed.
	KindImageConversionFailure
	// KindImageUnreadable means a cached image exists but cannot be read.
	KindImageUnreadable
)

// Sentinel errors, one per Kind. A *RenderError matches its kind's sentinel
// with errors.Is.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrDirectoryNotWritable   = errors.New("directory not writable")
	ErrTempFileNotWritable    = errors.New("temporary file not writable")
	ErrConverterUnusable      = errors.New("converter unusable")
	ErrRenderingError         = errors.New("rendering error")
	ErrImageConversionFailure = errors.New("image conversion failed")
	ErrImageUnreadable        = errors.New("cached image unreadable")
)

// Request and construction errors.
var (
	ErrNoCacheDir      = errors.New("cache directory is required")
	ErrMissingNotation = errors.New("notation is required")
	ErrInvalidWidth    = errors.New("invalid width")
)

var kindInfo = map[Kind]struct {
	name     string
	sentinel error
}{
	KindInvalidInput:           {"InvalidInput", ErrInvalidInput},
	KindDirectoryNotWritable:   {"DirectoryNotWritable", ErrDirectoryNotWritable},
	KindTempFileNotWritable:    {"TempFileNotWritable", ErrTempFileNotWritable},
	KindConverterUnusable:      {"ConverterUnusable", ErrConverterUnusable},
	KindRenderingError:         {"RenderingError", ErrRenderingError},
	KindImageConversionFailure: {"ImageConversionFailure", ErrImageConversionFailure},
	KindImageUnreadable:        {"ImageUnreadable", ErrImageUnreadable},
}

// String returns the kind name, e.g. "RenderingError".
func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinel returns the error value that matches k with errors.Is.
func (k Kind) Sentinel() error {
	return kindInfo[k].sentinel
}

// RenderError describes a failed render.
type RenderError struct {
	Kind     Kind
	Notation string
	Detail   string // human-readable context, e.g. "renderer exited with status 1"
	Output   []byte // captured combined output of the failing program, if any
	Err      error  // underlying cause
}

func (e *RenderError) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.Sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Notation != "" {
		msg = e.Notation + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *RenderError) Is(target error) bool {
	s := e.Kind.Sentinel()
	return s != nil && target == s
}

// KindOf extracts the failure kind from err.
func KindOf(err error) (Kind, bool) {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}

func failure(kind Kind, id, detail string, err error) *RenderError {
	return &RenderError{Kind: kind, Notation: id, Detail: detail, Err: err}
}
