package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"
)

// runCacheCmd executes cache stats, list and clear.
func runCacheCmd(args []string, env *Environment) error {
	if len(args) == 0 {
		printCacheUsage(env.Stderr)
		return fmt.Errorf("%w: cache needs a subcommand", ErrUsage)
	}
	sub := args[0]
	switch sub {
	case "stats", "list", "clear":
	default:
		printCacheUsage(env.Stderr)
		return fmt.Errorf("%w: cache %s", ErrUnknownSubcommand, sub)
	}

	fs := newFlagSet("cache "+sub, env.Stderr, printCacheUsage)
	var common commonFlags
	var jsonOutput bool
	addCommonFlags(fs, &common)
	fs.BoolVar(&jsonOutput, "json", false, "JSON output")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := loadSettings(&common, nil, nil, env)
	if err != nil {
		return err
	}

	return withApp(cfg, env, func(a app) error {
		switch sub {
		case "stats":
			stats, err := a.Renderer.CacheStats()
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(env.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			fmt.Fprintf(env.Stdout, "Directory: %s\n", stats.Dir)
			fmt.Fprintf(env.Stdout, "Images:    %d\n", stats.Entries)
			fmt.Fprintf(env.Stdout, "Size:      %s\n", formatBytes(stats.TotalBytes))
			ids := make([]string, 0, len(stats.ByNotation))
			for id := range stats.ByNotation {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(env.Stdout, "  %-10s %d\n", id, stats.ByNotation[id])
			}
			return nil

		case "list":
			entries, err := a.Renderer.CacheEntries()
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(env.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			tw := tabwriter.NewWriter(env.Stdout, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Notation, formatBytes(e.Size), e.CreatedAt.Format(time.DateTime))
			}
			return tw.Flush()

		default:
			n, err := a.Renderer.ClearCache()
			if err != nil {
				return err
			}
			if !common.quiet {
				fmt.Fprintf(env.Stdout, "removed %d image(s) from %s\n", n, a.Renderer.CacheDir())
			}
			return nil
		}
	})
}

// formatBytes prints a size with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
