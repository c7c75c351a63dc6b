package scorerender

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-scorerender/internal/cache"
	"github.com/alnah/go-scorerender/internal/notation"
	"github.com/alnah/go-scorerender/internal/process"
)

// Width limits in pixels.
const (
	MinWidth     = 72
	MaxWidth     = 4096
	DefaultWidth = 360
)

// defaultTimeout bounds each external program run when no timeout is specified.
const defaultTimeout = 30 * time.Second

// Request is one fragment to render. It is passed by value and never modified.
type Request struct {
	Notation    string // registered notation id, e.g. "lilypond"
	Source      string // raw user fragment
	Invert      bool   // white notes on a dark background
	Transparent bool   // key out the background
	MaxWidth    int    // pixels; 0 selects the renderer default
}

// Validate checks fields that do not depend on the notation registry.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Notation) == "" {
		return ErrMissingNotation
	}
	if r.MaxWidth != 0 && (r.MaxWidth < MinWidth || r.MaxWidth > MaxWidth) {
		return fmt.Errorf("%w: must be between %d and %d, got %d", ErrInvalidWidth, MinWidth, MaxWidth, r.MaxWidth)
	}
	return nil
}

// Result describes a rendered image in the cache.
type Result struct {
	Filename string        // cache-relative name, sr-<notation>-<hash>.png
	Path     string        // absolute path inside the cache directory
	Key      string        // content hash
	Notation string        // notation id
	CacheHit bool          // true when no program was run
	Duration time.Duration // wall time of the Render call
}

// CacheEntry and CacheStats describe the cache directory contents.
type (
	CacheEntry = cache.Entry
	CacheStats = cache.Stats
)

// Option configures a Renderer.
type Option func(*rendererConfig)

type rendererConfig struct {
	cacheDir   string
	tempDir    string
	keepTemp   bool
	convertBin string
	timeout    time.Duration
	width      int
	programs   map[string]string // notation id -> renderer binary
	magic      map[string]string // notation id -> magic file contents source
	endpoints  map[string]string // notation id -> remote renderer URL
	registry   *notation.Registry
	runner     process.Runner
	httpClient *http.Client
	logger     *zap.Logger
}

// WithCacheDir sets the directory holding rendered images. Required.
func WithCacheDir(dir string) Option {
	return func(c *rendererConfig) { c.cacheDir = dir }
}

// WithTempDir sets the parent of per-render work directories.
// Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(c *rendererConfig) { c.tempDir = dir }
}

// WithKeepTemp keeps work directories after each render for debugging.
func WithKeepTemp(keep bool) Option {
	return func(c *rendererConfig) { c.keepTemp = keep }
}

// WithConvertBin sets ImageMagick's convert binary, as a path or a name
// resolved on PATH.
func WithConvertBin(bin string) Option {
	return func(c *rendererConfig) { c.convertBin = bin }
}

// WithTimeout bounds each external program run.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("scorerender: WithTimeout duration must be positive")
	}
	return func(c *rendererConfig) { c.timeout = d }
}

// WithDefaultWidth sets the width used for requests with MaxWidth 0.
// Panics outside MinWidth..MaxWidth.
func WithDefaultWidth(px int) Option {
	if px < MinWidth || px > MaxWidth {
		panic(fmt.Sprintf("scorerender: WithDefaultWidth must be between %d and %d", MinWidth, MaxWidth))
	}
	return func(c *rendererConfig) { c.width = px }
}

// WithProgram overrides the renderer binary of a notation.
func WithProgram(id, bin string) Option {
	return func(c *rendererConfig) { c.programs[id] = bin }
}

// WithMagicFile sets the file whose contents are staged as a notation's
// magic file. Without it an empty file is staged.
func WithMagicFile(id, path string) Option {
	return func(c *rendererConfig) { c.magic[id] = path }
}

// WithEndpoint overrides the service URL of a remote notation.
func WithEndpoint(id, url string) Option {
	return func(c *rendererConfig) { c.endpoints[id] = url }
}

// WithRegistry replaces the built-in notation registry.
func WithRegistry(r *notation.Registry) Option {
	return func(c *rendererConfig) { c.registry = r }
}

// WithRunner replaces the process runner, mainly for tests.
func WithRunner(r process.Runner) Option {
	return func(c *rendererConfig) { c.runner = r }
}

// WithHTTPClient sets the client used for remote notations.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *rendererConfig) { c.httpClient = hc }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *rendererConfig) { c.logger = l }
}
