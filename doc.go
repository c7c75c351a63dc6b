// Package scorerender renders music notation fragments to cached PNG images
// using external renderers (abcm2ps, LilyPond, Mup, PMW, or a GUIDO web
// service) and ImageMagick.
//
// # Quick Start
//
//	r, err := scorerender.NewRenderer(
//	    scorerender.WithCacheDir("/var/cache/scores"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := r.Render(ctx, scorerender.Request{
//	    Notation: "abc",
//	    Source:   "X:1\nK:C\nCDEF|",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Filename) // sr-abc-<hash>.png
//
// # Pipeline
//
// Each request goes through these stages:
//
//  1. Validation: known notation, width bounds, non-empty fragment, and the
//     notation's blacklist of constructs that could read files or inject
//     PostScript.
//  2. Cache check: the key is an MD5 of the whitespace-normalized fragment,
//     the color options and the notation id. A hit runs no program.
//  3. Render: the converter and renderer binaries are probed for identity,
//     both directories are checked, and the renderer runs in a fresh work
//     directory with the fragment wrapped in the notation header.
//  4. Convert: ImageMagick turns PostScript into a trimmed PNG, applying
//     inversion and transparency.
//  5. Store: the PNG is renamed atomically into the cache and the work
//     directory is removed.
//
// Failures are returned as *RenderError with a Kind; match them with
// errors.Is against ErrRenderingError, ErrConverterUnusable and friends.
// Nothing is cached on failure.
//
// # Concurrency
//
// A Renderer is safe for concurrent use. Identical requests in flight at the
// same time share one render. Use Pool to render a batch with bounded
// parallelism:
//
//	pool := scorerender.NewPool(r, scorerender.ResolvePoolSize(0))
//	for _, br := range pool.RenderAll(ctx, reqs) {
//	    ...
//	}
//
// # Cache
//
// The cache is a flat directory of sr-<notation>-<hash>.png files and keeps
// no index; file existence is the only record. Changing the default width
// does not change keys, so clear the cache after changing it.
package scorerender
