// Package magick assembles ImageMagick convert invocations that turn
// renderer output (PostScript, or a raster image for remote renderers) into
// the final trimmed PNG.
package magick

import (
	"regexp"
	"strconv"

	"github.com/alnah/go-scorerender/internal/process"
)

// Identity recognizes ImageMagick's convert from its -version banner.
var Identity = process.Identity{
	Args:    []string{"-version"},
	Pattern: regexp.MustCompile(`ImageMagick`),
}

// transparentFuzz tolerates anti-aliasing halos when keying out the background.
const transparentFuzz = "10%"

// Flags carries the per-renderer conversion tuning. The values are
// empirically matched to each renderer's default output size, so they are
// kept as data next to the notation rather than computed.
type Flags struct {
	Density    int    // -density applied before reading PostScript; 0 = ImageMagick default
	Shave      string // -shave geometry removing renderer frame artifacts, e.g. "1x1"
	Colorspace string // optional -colorspace, e.g. "Gray"

	// Alpha is true when the rasterized input already has a transparent
	// background (ghostscript's pngalpha device does this for PostScript).
	Alpha bool
}

// Options are the per-request color choices.
type Options struct {
	Invert      bool // white notes on dark background
	Transparent bool // background keyed out
}

// Args returns the convert argument list rendering input into output.
// Multi-page input is trimmed page by page and stacked vertically.
func Args(input, output string, f Flags, o Options) []string {
	var args []string
	if f.Density > 0 {
		args = append(args, "-density", strconv.Itoa(f.Density))
	}
	args = append(args, input, "-trim", "+repage")
	if f.Shave != "" {
		args = append(args, "-shave", f.Shave, "+repage")
	}
	if f.Colorspace != "" {
		args = append(args, "-colorspace", f.Colorspace)
	}

	if f.Alpha {
		if !o.Transparent {
			args = append(args, "-background", "white", "-alpha", "remove", "-alpha", "off")
		}
		if o.Invert {
			// Negate color channels only so a transparent background stays transparent.
			args = append(args, "-channel", "RGB", "-negate", "+channel")
		}
	} else {
		if o.Invert {
			args = append(args, "-negate")
		}
		if o.Transparent {
			bg := "white"
			if o.Invert {
				bg = "black"
			}
			args = append(args, "-fuzz", transparentFuzz, "-transparent", bg)
		}
	}

	args = append(args, "-append", "png:"+output)
	return args
}
