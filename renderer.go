package scorerender

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/alnah/go-scorerender/internal/cache"
	"github.com/alnah/go-scorerender/internal/fileutil"
	"github.com/alnah/go-scorerender/internal/magick"
	"github.com/alnah/go-scorerender/internal/notation"
	"github.com/alnah/go-scorerender/internal/process"
)

// imageName is the converter output inside a work directory.
const imageName = "score.png"

// Renderer turns notation fragments into cached PNG images.
// Create with NewRenderer. A Renderer is safe for concurrent use; identical
// concurrent requests share a single render.
type Renderer struct {
	cfg      rendererConfig
	registry *notation.Registry
	cache    *cache.Cache
	runner   process.Runner
	client   *http.Client
	log      *zap.Logger
	flights  singleflight.Group

	mu      sync.Mutex
	probed  map[string]string  // binary path -> version banner
	waiting map[string]*flight // cache file name -> shared render context
}

// flight is the context of a shared render. It is canceled once every
// caller waiting on it has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewRenderer creates a Renderer. WithCacheDir is required. Overrides for
// notations missing from the registry are rejected.
func NewRenderer(opts ...Option) (*Renderer, error) {
	cfg := rendererConfig{
		timeout:    defaultTimeout,
		width:      DefaultWidth,
		convertBin: "convert",
		programs:   map[string]string{},
		magic:      map[string]string{},
		endpoints:  map[string]string{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if strings.TrimSpace(cfg.cacheDir) == "" {
		return nil, ErrNoCacheDir
	}
	c, err := cache.New(cfg.cacheDir)
	if err != nil {
		return nil, err
	}
	if cfg.tempDir == "" {
		cfg.tempDir = os.TempDir()
	}
	if cfg.registry == nil {
		cfg.registry = notation.Default()
	}
	for _, overrides := range []map[string]string{cfg.programs, cfg.magic, cfg.endpoints} {
		for id := range overrides {
			if _, err := cfg.registry.Get(id); err != nil {
				return nil, err
			}
		}
	}

	r := &Renderer{
		cfg:      cfg,
		registry: cfg.registry,
		cache:    c,
		runner:   cfg.runner,
		client:   cfg.httpClient,
		log:      cfg.logger,
		probed:   map[string]string{},
		waiting:  map[string]*flight{},
	}
	if r.runner == nil {
		r.runner = &process.ExecRunner{}
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: cfg.timeout}
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r, nil
}

// Notations returns the registered notation ids in sorted order.
func (r *Renderer) Notations() []string {
	return r.registry.IDs()
}

// NotationForFile returns the notation id matching a file extension.
func (r *Renderer) NotationForFile(name string) (string, bool) {
	n, ok := r.registry.ByExtension(filepath.Ext(name))
	if !ok {
		return "", false
	}
	return n.ID, true
}

// CacheDir returns the directory holding rendered images.
func (r *Renderer) CacheDir() string {
	return r.cache.Dir()
}

// job is a validated request.
type job struct {
	req  Request
	n    *notation.Notation
	norm *notation.Normalized
	key  cache.Key
	name string
}

func (j *job) result(path string, hit bool, start time.Time) *Result {
	return &Result{
		Filename: j.name,
		Path:     path,
		Key:      string(j.key),
		Notation: j.n.ID,
		CacheHit: hit,
		Duration: time.Since(start),
	}
}

// Render returns the cached image for req, rendering it first on a miss.
// Every error is a *RenderError. Failures are not cached, so a later call
// retries from scratch.
// A panic inside the pipeline is returned as a KindRenderingError.
func (r *Renderer) Render(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = failure(KindRenderingError, req.Notation, "internal error", fmt.Errorf("%v", p))
		}
		r.logOutcome(req, res, err, time.Since(start))
	}()

	j, err := r.prepare(req)
	if err != nil {
		return nil, err
	}

	path, hit, err := r.lookup(j)
	if err != nil {
		return nil, err
	}
	if hit {
		return j.result(path, true, start), nil
	}
	r.log.Debug("cache miss", zap.String("notation", j.n.ID), zap.String("key", string(j.key)))

	for {
		p, shared, err := r.await(ctx, j)
		if err != nil && ctx.Err() == nil && canceled(err) {
			// The flight was canceled by callers that left; start over.
			continue
		}
		if err != nil {
			return nil, err
		}
		if shared {
			r.log.Debug("joined in-flight render", zap.String("notation", j.n.ID), zap.String("key", string(j.key)))
		}
		return j.result(p.path, p.hit, start), nil
	}
}

// await joins the render for j, starting it if none is in flight, and waits
// for it or for ctx. The render itself runs until its last waiter leaves.
func (r *Renderer) await(ctx context.Context, j *job) (produced, bool, error) {
	if err := ctx.Err(); err != nil {
		return produced{}, false, failure(KindRenderingError, j.n.ID, "render canceled", err)
	}

	f := r.join(ctx, j.name)
	defer r.leave(j.name, f)

	ch := r.flights.DoChan(j.name, func() (v any, err error) {
		// singleflight re-panics in a new goroutine when callers share a flight.
		defer func() {
			if p := recover(); p != nil {
				err = failure(KindRenderingError, j.n.ID, "internal error", fmt.Errorf("%v", p))
			}
		}()
		return r.produce(f.ctx, j)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return produced{}, res.Shared, res.Err
		}
		return res.Val.(produced), res.Shared, nil
	case <-ctx.Done():
		return produced{}, false, failure(KindRenderingError, j.n.ID, "render canceled", ctx.Err())
	}
}

func (r *Renderer) join(ctx context.Context, name string) *flight {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.waiting[name]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		r.waiting[name] = f
	}
	f.waiters++
	return f
}

func (r *Renderer) leave(name string, f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if r.waiting[name] == f {
		delete(r.waiting, name)
	}
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, process.ErrCanceled)
}

// Lookup reports whether req is already cached, without running anything.
func (r *Renderer) Lookup(req Request) (*Result, bool, error) {
	start := time.Now()
	j, err := r.prepare(req)
	if err != nil {
		return nil, false, err
	}
	path, hit, err := r.lookup(j)
	if err != nil || !hit {
		return nil, false, err
	}
	return j.result(path, true, start), true, nil
}

// ClearCache removes every cached image and returns how many were removed.
func (r *Renderer) ClearCache() (int, error) {
	n, err := r.cache.Clear()
	r.log.Info("cache cleared", zap.String("dir", r.cache.Dir()), zap.Int("removed", n))
	return n, err
}

// CacheStats summarizes the cache directory.
func (r *Renderer) CacheStats() (CacheStats, error) {
	return r.cache.Stats()
}

// CacheEntries lists the cached images sorted by name.
func (r *Renderer) CacheEntries() ([]CacheEntry, error) {
	return r.cache.List()
}

func (r *Renderer) prepare(req Request) (*job, error) {
	if err := req.Validate(); err != nil {
		return nil, failure(KindInvalidInput, req.Notation, "", err)
	}
	n, err := r.registry.Get(req.Notation)
	if err != nil {
		return nil, failure(KindInvalidInput, req.Notation, "", err)
	}

	width := req.MaxWidth
	if width == 0 {
		width = r.cfg.width
	}
	norm, err := n.Normalize(req.Source, notation.Params{
		MaxWidth:    width,
		Invert:      req.Invert,
		Transparent: req.Transparent,
	})
	if err != nil {
		if errors.Is(err, notation.ErrInvalidSpec) {
			return nil, failure(KindRenderingError, n.ID, "building renderer input", err)
		}
		return nil, failure(KindInvalidInput, n.ID, "", err)
	}

	key := cache.KeyFor(n.ID, norm.Canonical, req.Invert, req.Transparent)
	return &job{req: req, n: n, norm: norm, key: key, name: cache.FileName(n.ID, key)}, nil
}

func (r *Renderer) lookup(j *job) (string, bool, error) {
	path, hit, err := r.cache.Lookup(j.n.ID, j.key)
	if err != nil {
		return "", false, failure(KindImageUnreadable, j.n.ID, "", err)
	}
	return path, hit, nil
}

type produced struct {
	path string
	hit  bool
}

// produce runs the miss path: probe, render, convert, store.
func (r *Renderer) produce(ctx context.Context, j *job) (produced, error) {
	// A flight that finished just before this one started may have stored it.
	if path, hit, err := r.lookup(j); err != nil || hit {
		return produced{path: path, hit: hit}, err
	}

	id := j.n.ID
	convertPath, err := r.probe(ctx, r.cfg.convertBin, magick.Identity)
	if err != nil {
		return produced{}, failure(KindConverterUnusable, id, "image converter", err)
	}

	if err := r.cache.Prepare(); err != nil {
		return produced{}, failure(KindDirectoryNotWritable, id, "cache directory", err)
	}
	if err := r.prepareTempDir(); err != nil {
		return produced{}, failure(KindDirectoryNotWritable, id, "temp directory", err)
	}

	var rendererPath string
	if !j.n.IsRemote() {
		if rendererPath, err = r.probe(ctx, r.programPath(j.n), j.n.Identity); err != nil {
			return produced{}, failure(KindConverterUnusable, id, "renderer", err)
		}
	}

	work, cleanup, err := fileutil.MakeWorkDir(r.cfg.tempDir, "sr-"+id)
	if err != nil {
		return produced{}, failure(KindTempFileNotWritable, id, "", err)
	}
	if r.cfg.keepTemp {
		r.log.Info("keeping work directory", zap.String("notation", id), zap.String("dir", work))
	} else {
		defer cleanup()
	}

	var raw string
	if j.n.IsRemote() {
		raw, err = r.fetchRemote(ctx, j, work)
	} else {
		raw, err = r.renderLocal(ctx, j, work, rendererPath)
	}
	if err != nil {
		return produced{}, err
	}
	r.log.Debug("rendered", zap.String("notation", id), zap.String("key", string(j.key)))

	png, err := r.convert(ctx, j, work, convertPath, raw)
	if err != nil {
		return produced{}, err
	}
	r.log.Debug("converted", zap.String("notation", id), zap.String("key", string(j.key)))

	path, err := r.cache.StoreFile(id, j.key, png)
	if err != nil {
		kind := KindTempFileNotWritable
		if errors.Is(err, fileutil.ErrNotWritable) {
			kind = KindDirectoryNotWritable
		}
		return produced{}, failure(kind, id, "storing image", err)
	}
	return produced{path: path}, nil
}

func (r *Renderer) prepareTempDir() error {
	if err := os.MkdirAll(r.cfg.tempDir, fileutil.DirPermissions); err != nil {
		return fmt.Errorf("%w: %s: %v", fileutil.ErrNotWritable, r.cfg.tempDir, err)
	}
	return fileutil.CheckWritable(r.cfg.tempDir)
}

func (r *Renderer) programPath(n *notation.Notation) string {
	if bin, ok := r.cfg.programs[n.ID]; ok && bin != "" {
		return bin
	}
	return n.Program.Binary
}

// probe resolves bin and checks its identity. Successful probes are
// remembered for the Renderer's lifetime; failures are retried next time.
func (r *Renderer) probe(ctx context.Context, bin string, id process.Identity) (string, error) {
	path, err := resolveBinary(bin)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	_, ok := r.probed[path]
	r.mu.Unlock()
	if ok {
		return path, nil
	}

	banner, err := process.Probe(ctx, r.runner, path, id)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.probed[path] = banner
	r.mu.Unlock()
	r.log.Debug("program verified", zap.String("path", path), zap.String("version", banner))
	return path, nil
}

// resolveBinary returns bin unchanged when it is a path and looks bare
// names up on PATH.
func resolveBinary(bin string) (string, error) {
	if bin == "" {
		return "", fmt.Errorf("%w: no program configured", process.ErrNotFound)
	}
	if fileutil.IsFilePath(bin) {
		return bin, nil
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found on PATH", process.ErrNotFound, bin)
	}
	return path, nil
}

// run executes cmd under the per-program timeout.
func (r *Renderer) run(ctx context.Context, cmd process.Command) (*process.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()
	return r.runner.Run(ctx, cmd)
}

func (r *Renderer) renderLocal(ctx context.Context, j *job, work, rendererPath string) (string, error) {
	n := j.n
	if _, err := fileutil.WriteFile(work, n.InputFile(), j.norm.Document); err != nil {
		return "", failure(KindTempFileNotWritable, n.ID, "writing renderer input", err)
	}
	if n.Magic != "" {
		if err := r.stageMagic(n, work); err != nil {
			return "", failure(KindTempFileNotWritable, n.ID, "staging magic file", err)
		}
	}

	cmd := process.Command{
		Path: rendererPath,
		Args: n.Program.Args(n.InputFile(), notation.OutputName),
		Dir:  work,
	}
	if n.Program.Env != nil {
		cmd.Env = n.Program.Env(work)
	}

	res, err := r.run(ctx, cmd)
	if err != nil {
		detail := "renderer failed"
		if errors.Is(err, process.ErrTimeout) {
			detail = fmt.Sprintf("renderer timed out after %s", r.cfg.timeout)
		}
		return "", withOutput(failure(KindRenderingError, n.ID, detail, err), res)
	}
	if res.ExitCode != 0 {
		detail := fmt.Sprintf("renderer exited with status %d", res.ExitCode)
		return "", withOutput(failure(KindRenderingError, n.ID, detail, nil), res)
	}

	out := filepath.Join(work, notation.OutputName)
	if !fileutil.NonEmptyFile(out) {
		return "", withOutput(failure(KindRenderingError, n.ID, "renderer produced no output", nil), res)
	}
	return out, nil
}

func (r *Renderer) stageMagic(n *notation.Notation, work string) error {
	var content []byte
	if src := r.cfg.magic[n.ID]; src != "" {
		data, err := os.ReadFile(src) // #nosec G304 -- path comes from configuration
		if err != nil {
			return fmt.Errorf("reading magic file: %w", err)
		}
		content = data
	}
	_, err := fileutil.WriteFile(work, n.Magic, content)
	return err
}

func (r *Renderer) convert(ctx context.Context, j *job, work, convertPath, raw string) (string, error) {
	out := filepath.Join(work, imageName)
	args := magick.Args(raw, out, j.n.Convert, magick.Options{
		Invert:      j.req.Invert,
		Transparent: j.req.Transparent,
	})

	res, err := r.run(ctx, process.Command{Path: convertPath, Args: args, Dir: work})
	if err != nil {
		return "", withOutput(failure(KindImageConversionFailure, j.n.ID, "convert failed", err), res)
	}
	if res.ExitCode != 0 {
		detail := fmt.Sprintf("convert exited with status %d", res.ExitCode)
		return "", withOutput(failure(KindImageConversionFailure, j.n.ID, detail, nil), res)
	}
	if !fileutil.NonEmptyFile(out) {
		return "", withOutput(failure(KindImageConversionFailure, j.n.ID, "convert produced no image", nil), res)
	}
	return out, nil
}

func withOutput(e *RenderError, res *process.Result) *RenderError {
	if res != nil {
		e.Output = res.Output
	}
	return e
}

// maxLoggedOutput bounds program output copied into log entries.
const maxLoggedOutput = 2048

func (r *Renderer) logOutcome(req Request, res *Result, err error, d time.Duration) {
	if err == nil {
		r.log.Info("render complete",
			zap.String("notation", res.Notation),
			zap.String("key", res.Key),
			zap.Bool("cache_hit", res.CacheHit),
			zap.Duration("duration", d))
		return
	}

	fields := []zap.Field{
		zap.String("notation", req.Notation),
		zap.Duration("duration", d),
		zap.Error(err),
	}
	var re *RenderError
	if errors.As(err, &re) {
		fields = append(fields, zap.Stringer("kind", re.Kind))
		if len(re.Output) > 0 {
			out := re.Output
			if len(out) > maxLoggedOutput {
				out = out[len(out)-maxLoggedOutput:]
			}
			fields = append(fields, zap.ByteString("output", out))
		}
	}
	r.log.Warn("render failed", fields...)
}
