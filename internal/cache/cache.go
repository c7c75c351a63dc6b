package cache

import (
	"crypto/md5" // #nosec G501 -- content addressing, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alnah/go-scorerender/internal/fileutil"
)

// Sentinel errors for cache operations.
var (
	ErrNoDir           = errors.New("cache directory not configured")
	ErrUnreadable      = errors.New("cached image exists but is not readable")
	ErrInvalidKey      = errors.New("invalid cache key")
	ErrInvalidNotation = errors.New("invalid notation id")
)

// Naming convention constants.
const (
	Prefix    = "sr"
	Extension = ".png"
	KeyLength = 32

	tempPattern = ".sr-tmp-*"
)

var (
	namePattern     = regexp.MustCompile(`^sr-([a-z0-9_]+)-([0-9a-f]{32})\.png$`)
	notationPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	keyPattern      = regexp.MustCompile(`^[0-9a-f]{32}$`)
)

// Key is the content hash identifying one rendered image.
type Key string

// KeyFor derives the cache key from the canonical source fragment, the color
// options, and the notation id. Callers must pass the whitespace-normalized
// fragment so that cosmetic differences hash identically.
func KeyFor(notation, canonical string, invert, transparent bool) Key {
	h := md5.New() // #nosec G401 -- content addressing, not a security boundary
	_, _ = io.WriteString(h, canonical)
	_, _ = io.WriteString(h, "\x00"+strconv.FormatBool(invert))
	_, _ = io.WriteString(h, "\x00"+strconv.FormatBool(transparent))
	_, _ = io.WriteString(h, "\x00"+notation)
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// FileName returns the cache file name for a notation and key.
func FileName(notation string, key Key) string {
	return Prefix + "-" + notation + "-" + string(key) + Extension
}

// ParseName extracts the notation and key from a cache file name.
func ParseName(name string) (notation string, key Key, ok bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return m[1], Key(m[2]), true
}

// ValidNotation reports whether id can appear in a cache file name.
func ValidNotation(id string) bool {
	return notationPattern.MatchString(id)
}

// Entry describes one cached image.
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Notation  string    `json:"notation"`
	Key       Key       `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats summarizes the cache directory.
type Stats struct {
	Dir        string         `json:"dir"`
	Entries    int            `json:"entries"`
	TotalBytes int64          `json:"totalBytes"`
	ByNotation map[string]int `json:"byNotation"`
}

// Cache is a flat directory of rendered images.
type Cache struct {
	dir string
}

// New creates a Cache rooted at dir. The directory is not created; call
// Prepare before the first Store.
func New(dir string) (*Cache, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrNoDir
	}
	return &Cache{dir: filepath.Clean(dir)}, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Prepare creates the directory if needed and verifies it accepts new files.
func (c *Cache) Prepare() error {
	if err := os.MkdirAll(c.dir, fileutil.DirPermissions); err != nil {
		return fmt.Errorf("%w: %s: %v", fileutil.ErrNotWritable, c.dir, err)
	}
	return fileutil.CheckWritable(c.dir)
}

// Path returns the absolute location a notation/key pair maps to.
func (c *Cache) Path(notation string, key Key) string {
	return filepath.Join(c.dir, FileName(notation, key))
}

// Lookup reports whether an image for the key exists and can be read.
// A missing file is a miss with a nil error; a file that exists but cannot be
// opened returns ErrUnreadable.
func (c *Cache) Lookup(notation string, key Key) (string, bool, error) {
	if err := validate(notation, key); err != nil {
		return "", false, err
	}
	path := c.Path(notation, key)
	f, err := os.Open(path) // #nosec G304 -- path is built from validated parts
	if err != nil {
		// ENOTDIR: the cache directory itself is missing or is a file.
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return "", false, fmt.Errorf("%w: %s", ErrUnreadable, path)
	}
	return path, true, nil
}

// Store writes an image for the key. produce receives a hidden temporary file
// in the cache directory; once it returns nil the file is renamed over the
// final path. Concurrent writers for the same key may race, but the last
// rename wins and readers only ever see complete files.
func (c *Cache) Store(notation string, key Key, produce func(w io.Writer) error) (string, error) {
	if err := validate(notation, key); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(c.dir, tempPattern)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", fileutil.ErrNotWritable, c.dir, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := produce(tmp); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("syncing staged image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing staged image: %w", err)
	}
	if err := os.Chmod(tmpPath, fileutil.FilePermissions); err != nil {
		return "", fmt.Errorf("setting image permissions: %w", err)
	}

	final := c.Path(notation, key)
	if err := os.Rename(tmpPath, final); err != nil {
		return "", fmt.Errorf("publishing cached image: %w", err)
	}
	committed = true
	return final, nil
}

// StoreFile copies src into the cache under the key.
func (c *Cache) StoreFile(notation string, key Key, src string) (string, error) {
	return c.Store(notation, key, func(w io.Writer) error {
		f, err := os.Open(src) // #nosec G304 -- src is a pipeline artifact
		if err != nil {
			return fmt.Errorf("opening rendered image: %w", err)
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("copying rendered image: %w", err)
		}
		return nil
	})
}

// List returns every entry following the naming convention, sorted by name.
func (c *Cache) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}

	var entries []Entry
	for _, e := range dirEntries {
		notation, key, ok := ParseName(e.Name())
		if !ok || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:      e.Name(),
			Path:      filepath.Join(c.dir, e.Name()),
			Notation:  notation,
			Key:       key,
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Stats returns information about the cache.
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{Dir: c.dir, ByNotation: map[string]int{}}
	entries, err := c.List()
	if err != nil {
		return stats, err
	}
	for _, e := range entries {
		stats.Entries++
		stats.TotalBytes += e.Size
		stats.ByNotation[e.Notation]++
	}
	return stats, nil
}

// Clear removes every cached image and any staged file left by an
// interrupted writer. Files that do not follow the naming convention are
// left alone. Returns the number of images removed.
func (c *Cache) Clear() (int, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}

	var removed int
	var errs []error
	for _, e := range dirEntries {
		name := e.Name()
		_, _, isImage := ParseName(name)
		isStaged := strings.HasPrefix(name, ".sr-tmp-")
		if !isImage && !isStaged {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		if isImage {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

func validate(notation string, key Key) error {
	if !ValidNotation(notation) {
		return fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
	}
	if !keyPattern.MatchString(string(key)) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
