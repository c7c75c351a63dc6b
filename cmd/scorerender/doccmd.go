package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	scorerender "github.com/alnah/go-scorerender"
	"github.com/alnah/go-scorerender/internal/assets"
	"github.com/alnah/go-scorerender/internal/fileutil"
	"github.com/alnah/go-scorerender/internal/pipeline"
)

// runDocCmd executes the doc command.
func runDocCmd(ctx context.Context, args []string, env *Environment) error {
	f, files, err := parseDocFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return fmt.Errorf("%w: doc takes exactly one Markdown file", ErrUsage)
	}
	cfg, err := loadSettings(&f.common, &f.engine, &f.request, env)
	if err != nil {
		return err
	}

	return withApp(cfg, env, func(a app) error {
		return convertDoc(ctx, a, f, files[0], env)
	})
}

// convertDoc writes input as HTML next to a directory of score images.
// For out.html the images go to out_scores/ and are referenced relatively.
func convertDoc(ctx context.Context, a app, f *docFlags, input string, env *Environment) error {
	source, err := os.ReadFile(input) // #nosec G304 -- user-provided path
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadInput, err)
	}

	output := f.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".html"
	}
	title := f.title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	assetDir := strings.TrimSuffix(output, filepath.Ext(output)) + "_scores"

	css, err := loadStyle(f, a.Config.Render.Invert)
	if err != nil {
		return err
	}

	known := func(id string) bool {
		_, err := a.Registry.Get(id)
		return err == nil
	}
	var firstErr error
	render := func(ctx context.Context, blocks []pipeline.Block) []pipeline.Image {
		images := renderBlocks(ctx, a, blocks, assetDir)
		for _, img := range images {
			if img.Err != nil {
				firstErr = img.Err
				break
			}
		}
		return images
	}

	conv := pipeline.NewDocConverter(known, pipeline.WithStyle(css), pipeline.WithCodeStyle(f.codeStyle))
	doc, err := conv.Convert(ctx, source, title, render)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), fileutil.DirPermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if err := os.WriteFile(output, []byte(doc.HTML), fileutil.FilePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	if !f.common.quiet {
		fmt.Fprintf(env.Stdout, "%s (%d scores, %d failed)\n", output, doc.Rendered, doc.Failed)
	}
	if doc.Failed > 0 {
		return fmt.Errorf("%d of %d score(s) in %s failed: %w", doc.Failed, len(doc.Blocks), input, firstErr)
	}
	return nil
}

// loadStyle resolves the page stylesheet. Inverted images get the dark
// style unless one is named.
func loadStyle(f *docFlags, invert bool) (string, error) {
	name := f.style
	if name == "" {
		name = assets.DefaultStyle
		if invert {
			name = "dark"
		}
	}
	r, err := assets.NewResolver(f.styleDir)
	if err != nil {
		return "", err
	}
	return r.LoadStyle(name)
}

// renderBlocks renders the blocks through the pool and copies each image
// into assetDir.
func renderBlocks(ctx context.Context, a app, blocks []pipeline.Block, assetDir string) []pipeline.Image {
	reqs := make([]scorerender.Request, len(blocks))
	for i, b := range blocks {
		reqs[i] = scorerender.Request{
			Notation:    b.Notation,
			Source:      b.Source,
			Invert:      a.Config.Render.Invert,
			Transparent: a.Config.Render.Transparent,
		}
	}

	images := make([]pipeline.Image, len(blocks))
	if err := os.MkdirAll(assetDir, fileutil.DirPermissions); err != nil {
		for i := range images {
			images[i].Err = fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
		return images
	}

	rel := filepath.Base(assetDir)
	for _, br := range a.Pool.RenderAll(ctx, reqs) {
		if br.Err != nil {
			images[br.Index].Err = br.Err
			continue
		}
		if err := copyFile(br.Result.Path, filepath.Join(assetDir, br.Result.Filename)); err != nil {
			images[br.Index].Err = err
			continue
		}
		images[br.Index].Src = path.Join(rel, br.Result.Filename)
	}
	return images
}
