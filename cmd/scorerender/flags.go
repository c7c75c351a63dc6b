package main

import (
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-scorerender/internal/config"
	"github.com/alnah/go-scorerender/internal/pipeline"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config   string
	cacheDir string
	quiet    bool
	verbose  bool
}

// engineFlags tune how programs are run.
type engineFlags struct {
	tempDir    string
	keepTemp   bool
	convertBin string
	timeout    string
	workers    int
}

// requestFlags select per-image options.
type requestFlags struct {
	notation    string
	width       int
	invert      bool
	transparent bool
}

// renderFlags holds all flags for the render and watch commands.
type renderFlags struct {
	common  commonFlags
	engine  engineFlags
	request requestFlags
	output  string
}

// docFlags holds all flags for the doc command.
type docFlags struct {
	common  commonFlags
	engine  engineFlags
	request requestFlags
	output    string
	title     string
	style     string
	styleDir  string
	codeStyle string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.cacheDir, "cache-dir", "", "directory holding rendered images")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging and timings")
}

// addEngineFlags adds program execution flags to a FlagSet.
func addEngineFlags(fs *flag.FlagSet, f *engineFlags) {
	fs.StringVar(&f.tempDir, "temp-dir", "", "parent of per-render work directories")
	fs.BoolVar(&f.keepTemp, "keep-temp", false, "keep work directories for debugging")
	fs.StringVar(&f.convertBin, "convert-bin", "", "ImageMagick convert binary")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-program timeout (e.g., 30s, 2m)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel renders (0 = auto)")
}

// addRequestFlags adds image option flags to a FlagSet. withNotation is
// false for commands that take the notation from the input itself.
func addRequestFlags(fs *flag.FlagSet, f *requestFlags, withNotation bool) {
	if withNotation {
		fs.StringVarP(&f.notation, "notation", "n", "", "notation id (default: from file extension)")
	}
	fs.IntVar(&f.width, "width", 0, "maximum image width in pixels")
	fs.BoolVar(&f.invert, "invert", false, "white notes on a dark background")
	fs.BoolVar(&f.transparent, "transparent", false, "transparent background")
}

func newFlagSet(name string, stderr io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	return fs
}

// parseRenderFlags parses render or watch flags and returns positional args.
func parseRenderFlags(name string, args []string, stderr io.Writer) (*renderFlags, []string, error) {
	usage := printRenderUsage
	if name == "watch" {
		usage = printWatchUsage
	}
	fs := newFlagSet(name, stderr, usage)
	f := &renderFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output file or directory (default: print cache paths)")
	addCommonFlags(fs, &f.common)
	addEngineFlags(fs, &f.engine)
	addRequestFlags(fs, &f.request, true)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseDocFlags parses doc command flags and returns positional args.
func parseDocFlags(args []string, stderr io.Writer) (*docFlags, []string, error) {
	fs := newFlagSet("doc", stderr, printDocUsage)
	f := &docFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output HTML file (default: input with .html)")
	fs.StringVar(&f.title, "title", "", "HTML title (default: input file name)")
	fs.StringVar(&f.style, "style", "", "page style name (default: default, or dark with --invert)")
	fs.StringVar(&f.styleDir, "style-dir", "", "directory of {name}.css styles searched first")
	fs.StringVar(&f.codeStyle, "code-style", pipeline.DefaultCodeStyle, "chroma style for code blocks")
	addCommonFlags(fs, &f.common)
	addEngineFlags(fs, &f.engine)
	addRequestFlags(fs, &f.request, false)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(common *commonFlags, engine *engineFlags, request *requestFlags, cfg *config.Config) {
	if common.cacheDir != "" {
		cfg.Cache.Dir = common.cacheDir
	}
	if common.verbose {
		cfg.Logging.Level = "debug"
	}
	if common.quiet {
		cfg.Logging.Level = "error"
	}

	if engine != nil {
		if engine.tempDir != "" {
			cfg.Temp.Dir = engine.tempDir
		}
		if engine.keepTemp {
			cfg.Temp.Keep = true
		}
		if engine.convertBin != "" {
			cfg.Convert.Bin = engine.convertBin
		}
		if engine.timeout != "" {
			cfg.Render.Timeout = engine.timeout
		}
		if engine.workers != 0 {
			cfg.Render.Workers = engine.workers
		}
	}

	if request != nil {
		if request.width != 0 {
			cfg.Render.MaxWidth = request.width
		}
		if request.invert {
			cfg.Render.Invert = true
		}
		if request.transparent {
			cfg.Render.Transparent = true
		}
	}
}
