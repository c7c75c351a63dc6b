package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scorerender <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render notation files to cached PNG images")
	fmt.Fprintln(w, "  doc        Convert Markdown with fenced scores to HTML")
	fmt.Fprintln(w, "  watch      Re-render files when they change")
	fmt.Fprintln(w, "  cache      Show, list or clear the image cache")
	fmt.Fprintln(w, "  doctor     Check renderers, ImageMagick and directories")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'scorerender help <command>' for details on a specific command.")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --cache-dir <dir>     Directory holding rendered images")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Debug logging and timings")
}

func printEngineUsage(w io.Writer) {
	fmt.Fprintln(w, "Programs:")
	fmt.Fprintln(w, "      --convert-bin <path>  ImageMagick convert binary")
	fmt.Fprintln(w, "      --temp-dir <dir>      Parent of per-render work directories")
	fmt.Fprintln(w, "      --keep-temp           Keep work directories for debugging")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per-program timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel renders (0 = auto)")
}

func printImageUsage(w io.Writer, withNotation bool) {
	fmt.Fprintln(w, "Image:")
	if withNotation {
		fmt.Fprintln(w, "  -n, --notation <id>       abc, lilypond, mup, pmw, guido (default: by extension)")
	}
	fmt.Fprintln(w, "      --width <px>          Maximum image width (72-4096)")
	fmt.Fprintln(w, "      --invert              White notes on a dark background")
	fmt.Fprintln(w, "      --transparent         Transparent background")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scorerender render <file|-> [file...] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render notation files and print the cached image paths.")
	fmt.Fprintln(w, "Use - to read a fragment from standard input (requires --notation).")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Copy images to a .png file or a directory")
	fmt.Fprintln(w)
	printImageUsage(w, true)
	fmt.Fprintln(w)
	printEngineUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printWatchUsage prints usage for the watch command.
func printWatchUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scorerender watch <file|dir> [file|dir...] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render files, then render them again on every change until interrupted.")
	fmt.Fprintln(w, "Directories are watched for files with a known notation extension.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Copy images to a directory")
	fmt.Fprintln(w)
	printImageUsage(w, true)
	fmt.Fprintln(w)
	printEngineUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printDocUsage prints usage for the doc command.
func printDocUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scorerender doc <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert Markdown to HTML. Fenced blocks whose info string is a notation id")
	fmt.Fprintln(w, "(```abc, ```lilypond, ...) become images stored in <output>_scores/.")
	fmt.Fprintln(w, "Blocks that fail to render keep their highlighted source and the error.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <file>       HTML file (default: input with .html)")
	fmt.Fprintln(w, "      --title <s>           HTML title (default: input file name)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Style:")
	fmt.Fprintln(w, "      --style <name>        default or dark (default: dark with --invert)")
	fmt.Fprintln(w, "      --style-dir <dir>     Directory of <name>.css files searched first")
	fmt.Fprintln(w, "      --code-style <name>   Chroma style for code blocks (default: github)")
	fmt.Fprintln(w)
	printImageUsage(w, false)
	fmt.Fprintln(w)
	printEngineUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printCacheUsage prints usage for the cache command.
func printCacheUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scorerender cache <stats|list|clear> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  stats      Image count and size per notation")
	fmt.Fprintln(w, "  list       One line per cached image")
	fmt.Fprintln(w, "  clear      Remove every cached image")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --json                JSON output (stats, list)")
	printCommonUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scorerender doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Probe ImageMagick and every renderer, and check both directories.")
	fmt.Fprintln(w, "Exits 4 when ImageMagick or a directory is unusable.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --json                JSON output")
	printEngineUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: scorerender config [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the effective configuration as YAML.")
	fmt.Fprintln(w, "Precedence: flags > SCORERENDER_* environment > config file > defaults.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "      --paths               List the files searched for a config name")
	printCommonUsage(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "render":
		printRenderUsage(env.Stdout)
	case "watch":
		printWatchUsage(env.Stdout)
	case "doc":
		printDocUsage(env.Stdout)
	case "cache":
		printCacheUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: scorerender version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: scorerender help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
