package notation

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/alnah/go-scorerender/internal/magick"
	"github.com/alnah/go-scorerender/internal/process"
)

// Sentinel errors for fragment validation and registry construction.
var (
	ErrEmptyInput      = errors.New("music fragment is empty")
	ErrUnsafeContent   = errors.New("music fragment contains a forbidden construct")
	ErrUnknownNotation = errors.New("unknown notation")
	ErrDuplicateID     = errors.New("duplicate notation id")
	ErrInvalidSpec     = errors.New("invalid notation spec")
)

// InputName and OutputName are the fixed file names used inside a render's
// work directory. User text never reaches a file name or an argument.
const (
	InputName  = "score"
	OutputName = "score.ps"
)

// Rule is one blacklist entry.
type Rule struct {
	Name    string // human-readable reason, reported on rejection
	Pattern *regexp.Regexp
}

// Program describes how to invoke a local renderer.
type Program struct {
	Binary string                              // default executable name, resolved on PATH
	Args   func(input, output string) []string // argument list; never passed through a shell
	Env    func(workDir string) []string       // optional extra environment
}

// Remote describes a renderer reached over HTTP instead of a local binary.
// The service answers with a raster image that is then post-processed by
// ImageMagick like PostScript output.
type Remote struct {
	Endpoint    string // default service URL
	SourceParam string // query parameter carrying the fragment
	WidthParam  string // query parameter carrying the converted width
	Extension   string // file extension of the returned image, e.g. ".png"
}

// Spec is the static description of one notation.
type Spec struct {
	ID        string
	Name      string
	Extension string // source file extension, used for input files and file detection

	Header string // text/template executed with the render parameters
	Footer string

	Blacklist []Rule
	StripCR   bool // renderer mishandles carriage returns

	// Width converts the pixel width into the unit the header expects.
	Width func(px int) string

	Program  Program
	Remote   *Remote
	Identity process.Identity

	Convert magick.Flags

	// Magic names a file the renderer refuses to run without. It is staged
	// in the work directory, which also becomes the renderer's HOME.
	Magic string
}

// Params are the per-request values available to header and footer templates.
type Params struct {
	MaxWidth    int // pixels
	Invert      bool
	Transparent bool
}

// templateData is what templates see; Width is already in notation units.
type templateData struct {
	Width       string
	MaxWidth    int
	Invert      bool
	Transparent bool
}

// Normalized is the result of preparing a fragment for rendering.
type Normalized struct {
	Canonical string // whitespace-normalized fragment, the cache key material
	Document  []byte // exact bytes written to the renderer input file
}

// Notation is a validated Spec with compiled templates.
type Notation struct {
	Spec
	header *template.Template
	footer *template.Template
}

func compile(s Spec) (*Notation, error) {
	n := &Notation{Spec: s}
	var err error
	if n.header, err = template.New(s.ID + "-header").Option("missingkey=error").Parse(s.Header); err != nil {
		return nil, fmt.Errorf("%w: %s header: %v", ErrInvalidSpec, s.ID, err)
	}
	if n.footer, err = template.New(s.ID + "-footer").Option("missingkey=error").Parse(s.Footer); err != nil {
		return nil, fmt.Errorf("%w: %s footer: %v", ErrInvalidSpec, s.ID, err)
	}
	return n, nil
}

// IsRemote reports whether the notation is rendered by an HTTP service.
func (n *Notation) IsRemote() bool {
	return n.Remote != nil
}

// InputFile returns the renderer input file name.
func (n *Notation) InputFile() string {
	return InputName + n.Extension
}

// Canonical applies the notation's whitespace rules to a fragment.
// Trailing spaces and tabs are trimmed from every line and blank lines at
// both ends are dropped, so cosmetic edits keep the same cache key.
func (n *Notation) Canonical(source string) string {
	if n.StripCR {
		source = strings.ReplaceAll(source, "\r\n", "\n")
		source = strings.ReplaceAll(source, "\r", "\n")
	}

	lines := strings.Split(source, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	start, end := 0, len(lines)
	for start < end && isBlank(lines[start]) {
		start++
	}
	for end > start && isBlank(lines[end-1]) {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// Check runs the blacklist against a canonical fragment. Rules are evaluated
// in order and the first match is reported.
func (n *Notation) Check(canonical string) error {
	for _, r := range n.Blacklist {
		if r.Pattern.MatchString(canonical) {
			return fmt.Errorf("%w: %s", ErrUnsafeContent, r.Name)
		}
	}
	return nil
}

// Normalize validates the fragment and wraps it with the notation header and
// footer. The source string is not modified.
func (n *Notation) Normalize(source string, p Params) (*Normalized, error) {
	canonical := n.Canonical(source)
	if canonical == "" {
		return nil, ErrEmptyInput
	}
	if err := n.Check(canonical); err != nil {
		return nil, err
	}

	data := templateData{
		Width:       n.Width(p.MaxWidth),
		MaxWidth:    p.MaxWidth,
		Invert:      p.Invert,
		Transparent: p.Transparent,
	}

	var buf bytes.Buffer
	if err := n.header.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %s header: %v", ErrInvalidSpec, n.ID, err)
	}
	buf.WriteString(canonical)
	buf.WriteByte('\n')
	if err := n.footer.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %s footer: %v", ErrInvalidSpec, n.ID, err)
	}

	return &Normalized{Canonical: canonical, Document: buf.Bytes()}, nil
}
