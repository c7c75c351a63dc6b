package scorerender

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent renders; each one runs ghostscript through
	// ImageMagick, which is memory hungry.
	MaxPoolSize = 8
)

// BatchResult is the outcome of one request in a batch.
type BatchResult struct {
	Index   int
	Request Request
	Result  *Result
	Err     error
}

// Pool renders batches of requests with bounded parallelism.
// All workers share one Renderer, so identical requests in a batch are
// rendered once.
type Pool struct {
	r    *Renderer
	size int
}

// NewPool creates a pool running at most n renders at a time.
func NewPool(r *Renderer, n int) *Pool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &Pool{r: r, size: n}
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return p.size
}

// RenderAll renders every request and returns the results in input order.
// One failure does not stop the others. Once ctx is done, requests that have
// not started fail with ctx.Err().
func (p *Pool) RenderAll(ctx context.Context, reqs []Request) []BatchResult {
	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(p.size)
	for i, req := range reqs {
		results[i] = BatchResult{Index: i, Request: req}
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Result, results[i].Err = p.r.Render(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs in containers.
	n := runtime.GOMAXPROCS(0)
	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
