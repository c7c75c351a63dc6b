package notation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alnah/go-scorerender/internal/magick"
	"github.com/alnah/go-scorerender/internal/process"
)

// Built-in notation ids.
const (
	ABC      = "abc"
	LilyPond = "lilypond"
	Mup      = "mup"
	PMW      = "pmw"
	Guido    = "guido"
)

// Builtin returns the specs of every notation shipped with scorerender.
// Each call returns fresh values.
func Builtin() []Spec {
	return []Spec{abcSpec(), lilypondSpec(), mupSpec(), pmwSpec(), guidoSpec()}
}

func rule(name, pattern string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern)}
}

func points(px int) string { return strconv.Itoa(px) }

func abcSpec() Spec {
	return Spec{
		ID:        ABC,
		Name:      "ABC",
		Extension: ".abc",
		Header: `%abc
%%staffwidth {{.Width}}
%%leftmargin 0.2cm
%%rightmargin 0.2cm
%%topspace 0
%%titlespace 0
%%composerspace 0
%%musicspace 0
%%writefields T 0
`,
		Blacklist: []Rule{
			rule("embedded PostScript", `(?mi)^\s*%%\s*(?:beginps|endps|postscript|ps)\b`),
			rule("file inclusion", `(?mi)^\s*%%\s*(?:abc-include|format|eps)\b`),
			rule("PostScript decoration", `(?mi)^\s*%%\s*deco\b`),
		},
		StripCR: true,
		Width: func(px int) string {
			return fmt.Sprintf("%.2fin", float64(px)/120)
		},
		Program: Program{
			Binary: "abcm2ps",
			Args: func(input, output string) []string {
				return []string{"-q", "-O", output, input}
			},
		},
		Identity: process.Identity{
			Args:    []string{"-V"},
			Pattern: regexp.MustCompile(`abcm2ps`),
		},
		Convert: magick.Flags{Density: 96, Alpha: true},
	}
}

// lilypondDensity makes one LilyPond point one output pixel:
// 72dpi scaled by 24/20 to undo the default staff size of 20pt.
const lilypondDensity = 72 * 24 / 20

func lilypondSpec() Spec {
	return Spec{
		ID:        LilyPond,
		Name:      "LilyPond",
		Extension: ".ly",
		Header: `\version "2.12.0"
\paper {
  line-width = {{.Width}}
  indent = 0\mm
  ragged-right = ##t
  oddHeaderMarkup = ""
  evenHeaderMarkup = ""
  oddFooterMarkup = ""
  evenFooterMarkup = ""
}
\header { tagline = ##f }
`,
		Blacklist: []Rule{
			rule("file inclusion", `\\(?:include|input)\b`),
			rule("TeX primitive", `\\(?:write|immediate|newwrite|catcode|openin|openout|special)\b`),
			rule("Scheme system access", `#\(\s*(?:ly:)?(?:system|open-file|open-input-file|open-output-file|load|primitive-load|eval-string)\b`),
		},
		Width: func(px int) string {
			return strconv.Itoa(px) + `\pt`
		},
		Program: Program{
			Binary: "lilypond",
			Args: func(input, output string) []string {
				// LilyPond appends the extension to the -o base name itself.
				return []string{"-dsafe", "--ps", "-dno-point-and-click",
					"-o", strings.TrimSuffix(output, ".ps"), input}
			},
		},
		Identity: process.Identity{
			Args:    []string{"--version"},
			Pattern: regexp.MustCompile(`GNU LilyPond`),
		},
		Convert: magick.Flags{Density: lilypondDensity, Alpha: true},
	}
}

func mupSpec() Spec {
	return Spec{
		ID:        Mup,
		Name:      "Mup",
		Extension: ".mup",
		Header: `score
leftmargin = 0
rightmargin = 0
topmargin = 0
bottommargin = 0
pagewidth = {{.Width}}
label = ""
`,
		Blacklist: []Rule{
			rule("file inclusion", `(?m)^\s*include\b`),
			rule("font file", `(?m)^\s*fontfile\b`),
		},
		StripCR: true,
		Width: func(px int) string {
			return fmt.Sprintf("%.2f", float64(px)/72)
		},
		Program: Program{
			Binary: "mup",
			Args: func(input, output string) []string {
				return []string{"-f", output, input}
			},
			Env: func(workDir string) []string {
				return []string{"HOME=" + workDir}
			},
		},
		Identity: process.Identity{
			Args:    []string{"-v"},
			Pattern: regexp.MustCompile(`Mup`),
		},
		Convert: magick.Flags{Density: 90, Shave: "1x1", Alpha: true},
		Magic:   ".mup",
	}
}

func pmwSpec() Spec {
	return Spec{
		ID:        PMW,
		Name:      "Philip's Music Writer",
		Extension: ".pmw",
		Header: `Sheetwidth {{.Width}}
Linelength {{.Width}}
Nocheck
`,
		Blacklist: []Rule{
			rule("file inclusion", `(?mi)^\s*\*include\b`),
			rule("PostScript header", `(?mi)^\s*psheader\b`),
		},
		StripCR: true,
		Width:   points,
		Program: Program{
			Binary: "pmw",
			Args: func(input, output string) []string {
				return []string{"-norc", "-o", output, input}
			},
		},
		Identity: process.Identity{
			Args:    []string{"-V"},
			Pattern: regexp.MustCompile(`(?i)PMW`),
		},
		Convert: magick.Flags{Density: 96, Alpha: true},
	}
}

func guidoSpec() Spec {
	return Spec{
		ID:        Guido,
		Name:      "GUIDO",
		Extension: ".gmn",
		Width:     points,
		Remote: &Remote{
			Endpoint:    "http://guido.grame.fr:8000/",
			SourceParam: "gmn",
			WidthParam:  "width",
			Extension:   ".png",
		},
		Convert: magick.Flags{},
	}
}
