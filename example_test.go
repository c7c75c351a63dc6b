package scorerender_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/alnah/go-scorerender"
)

// Examples have no Output comment: they need abcm2ps and ImageMagick.

func ExampleRenderer_Render() {
	r, err := scorerender.NewRenderer(
		scorerender.WithCacheDir(filepath.Join(os.TempDir(), "scorerender-example")),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := r.Render(context.Background(), scorerender.Request{
		Notation: "abc",
		Source:   "X:1\nT:Scale\nK:C\nCDEF GABc|",
	})
	if err != nil {
		var re *scorerender.RenderError
		if errors.As(err, &re) {
			fmt.Fprintf(os.Stderr, "%s\n%s", re, re.Output)
		}
		return
	}
	fmt.Println(res.Filename, res.CacheHit)
}

func ExamplePool_RenderAll() {
	r, err := scorerender.NewRenderer(
		scorerender.WithCacheDir(filepath.Join(os.TempDir(), "scorerender-example")),
	)
	if err != nil {
		log.Fatal(err)
	}

	reqs := []scorerender.Request{
		{Notation: "abc", Source: "X:1\nK:G\nGABc|"},
		{Notation: "lilypond", Source: "{ c' d' e' f' }"},
	}
	pool := scorerender.NewPool(r, scorerender.ResolvePoolSize(0))
	for _, br := range pool.RenderAll(context.Background(), reqs) {
		if br.Err != nil {
			kind, _ := scorerender.KindOf(br.Err)
			fmt.Println(br.Index, kind)
			continue
		}
		fmt.Println(br.Index, br.Result.Filename)
	}
}

func ExampleRenderer_Check() {
	r, err := scorerender.NewRenderer(
		scorerender.WithCacheDir(filepath.Join(os.TempDir(), "scorerender-example")),
	)
	if err != nil {
		log.Fatal(err)
	}

	rep := r.Check(context.Background())
	fmt.Println("usable:", rep.Usable())
}
