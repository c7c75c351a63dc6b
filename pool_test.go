package scorerender

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alnah/go-scorerender/internal/process"
)

// ---------------------------------------------------------------------------
// TestResolvePoolSize - Worker count selection
// ---------------------------------------------------------------------------

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	if got := ResolvePoolSize(3); got != 3 {
		t.Errorf("ResolvePoolSize(3) = %d, want 3", got)
	}
	if got := ResolvePoolSize(20); got != 20 {
		t.Errorf("explicit workers should not be capped, got %d", got)
	}

	want := runtime.GOMAXPROCS(0)
	if want > MaxPoolSize {
		want = MaxPoolSize
	}
	for _, w := range []int{0, -1} {
		if got := ResolvePoolSize(w); got != want {
			t.Errorf("ResolvePoolSize(%d) = %d, want %d", w, got, want)
		}
	}
}

func TestNewPool_MinimumSize(t *testing.T) {
	t.Parallel()

	if got := NewPool(nil, 0).Size(); got != MinPoolSize {
		t.Errorf("NewPool(0).Size() = %d, want %d", got, MinPoolSize)
	}
}

// ---------------------------------------------------------------------------
// TestPool_RenderAll - Batch rendering
// ---------------------------------------------------------------------------

func TestPool_RenderAll(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	pool := NewPool(env.r, 3)

	reqs := []Request{
		demoRequest("A"),
		demoRequest("include x"),
		demoRequest("B"),
		demoRequest("A\n"),
		demoRequest("C"),
	}
	results := pool.RenderAll(context.Background(), reqs)

	if len(results) != len(reqs) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(reqs))
	}
	for i, br := range results {
		if br.Index != i || br.Request.Source != reqs[i].Source {
			t.Errorf("result %d out of order: %+v", i, br)
		}
	}
	if kind, _ := KindOf(results[1].Err); kind != KindInvalidInput {
		t.Errorf("blacklisted item error = %v", results[1].Err)
	}
	for _, i := range []int{0, 2, 3, 4} {
		if results[i].Err != nil {
			t.Errorf("item %d error: %v", i, results[i].Err)
		}
	}
	if results[0].Result.Filename != results[3].Result.Filename {
		t.Error("whitespace variants in one batch should share a file")
	}
	if n := env.runner.invocations("demo-render"); n != 3 {
		t.Errorf("renderer invocations = %d, want 3 distinct renders", n)
	}
}

func TestPool_BoundedParallelism(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	var active, peak atomic.Int32
	env.runner.render = func(cmd process.Command) (*process.Result, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return writeOutput(cmd.Dir+"/score.ps", "%!PS")
	}

	var reqs []Request
	for _, s := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		reqs = append(reqs, demoRequest(s))
	}
	for _, br := range NewPool(env.r, 2).RenderAll(context.Background(), reqs) {
		if br.Err != nil {
			t.Fatalf("item %d error: %v", br.Index, br.Err)
		}
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrent renders = %d, want at most 2", p)
	}
}

func TestPool_CanceledContext(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewPool(env.r, 2).RenderAll(ctx, []Request{demoRequest("A"), demoRequest("B")})
	for _, br := range results {
		if !errors.Is(br.Err, context.Canceled) {
			t.Errorf("item %d error = %v, want context.Canceled", br.Index, br.Err)
		}
	}
	if n := len(env.runner.calls); n != 0 {
		t.Errorf("canceled batch ran %d programs", n)
	}
}
