// Package config loads and validates scorerender's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/alnah/go-scorerender/internal/fileutil"
	"github.com/alnah/go-scorerender/internal/logging"
	"github.com/alnah/go-scorerender/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidValue    = errors.New("invalid config value")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
)

// AppName names the user configuration and cache subdirectories.
const AppName = "scorerender"

// Limits and defaults.
const (
	MaxPathLength = 4096
	MaxURLLength  = 2048

	MinWidth     = 72
	MaxWidth     = 4096
	DefaultWidth = 360
	MaxWorkers   = 64

	DefaultTimeout   = 30 * time.Second
	DefaultConverter = "convert"
)

var notationID = regexp.MustCompile(`^[a-z0-9_]+$`)

// Config holds all configuration for rendering.
type Config struct {
	Cache     CacheConfig               `yaml:"cache"`
	Temp      TempConfig                `yaml:"temp"`
	Convert   ConvertConfig             `yaml:"convert"`
	Render    RenderConfig              `yaml:"render"`
	Notations map[string]NotationConfig `yaml:"notations"`
	Logging   LoggingConfig             `yaml:"logging"`
}

// CacheConfig locates rendered images.
type CacheConfig struct {
	Dir string `yaml:"dir"` // empty = user cache directory
}

// TempConfig controls per-render scratch directories.
type TempConfig struct {
	Dir  string `yaml:"dir"`  // empty = system temp directory
	Keep bool   `yaml:"keep"` // keep work directories for debugging
}

// ConvertConfig locates ImageMagick.
type ConvertConfig struct {
	Bin string `yaml:"bin"`
}

// RenderConfig holds request defaults.
type RenderConfig struct {
	Timeout     string `yaml:"timeout"`  // Go duration, e.g. "30s"
	MaxWidth    int    `yaml:"maxWidth"` // pixels
	Invert      bool   `yaml:"invert"`
	Transparent bool   `yaml:"transparent"`
	Workers     int    `yaml:"workers"` // 0 = auto
}

// NotationConfig overrides a notation's renderer location.
type NotationConfig struct {
	Bin       string `yaml:"bin"`
	MagicFile string `yaml:"magicFile"` // contents staged as the renderer's magic file
	URL       string `yaml:"url"`       // remote renderer endpoint
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Convert: ConvertConfig{Bin: DefaultConverter},
		Render: RenderConfig{
			Timeout:  DefaultTimeout.String(),
			MaxWidth: DefaultWidth,
		},
		Notations: map[string]NotationConfig{},
		Logging:   LoggingConfig{Level: "info", Format: logging.FormatConsole},
	}
}

// TimeoutDuration parses Render.Timeout. The empty string selects DefaultTimeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Render.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Render.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: render.timeout: %v", ErrInvalidValue, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: render.timeout: must be positive, got %s", ErrInvalidValue, d)
	}
	return d, nil
}

// CacheDir returns Cache.Dir or the per-user default.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%w: cache.dir is empty and no user cache directory: %v", ErrInvalidValue, err)
	}
	return filepath.Join(base, AppName), nil
}

// Validate checks ranges and lengths. Called by LoadConfig; library users
// building a Config by hand should call it too.
func (c *Config) Validate() error {
	paths := map[string]string{
		"cache.dir":   c.Cache.Dir,
		"temp.dir":    c.Temp.Dir,
		"convert.bin": c.Convert.Bin,
	}
	for field, v := range paths {
		if err := validateFieldLength(field, v, MaxPathLength); err != nil {
			return err
		}
	}

	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if w := c.Render.MaxWidth; w != 0 && (w < MinWidth || w > MaxWidth) {
		return fmt.Errorf("%w: render.maxWidth: must be between %d and %d, got %d", ErrInvalidValue, MinWidth, MaxWidth, w)
	}
	if n := c.Render.Workers; n < 0 || n > MaxWorkers {
		return fmt.Errorf("%w: render.workers: must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, n)
	}

	for id, nc := range c.Notations {
		if !notationID.MatchString(id) {
			return fmt.Errorf("%w: notations.%s: id must be lowercase letters, digits or underscores", ErrInvalidValue, id)
		}
		if err := validateFieldLength("notations."+id+".bin", nc.Bin, MaxPathLength); err != nil {
			return err
		}
		if err := validateFieldLength("notations."+id+".magicFile", nc.MagicFile, MaxPathLength); err != nil {
			return err
		}
		if err := validateFieldLength("notations."+id+".url", nc.URL, MaxURLLength); err != nil {
			return err
		}
		if nc.URL != "" {
			u, err := url.Parse(nc.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("%w: notations.%s.url: want an http or https URL, got %q", ErrInvalidValue, id, nc.URL)
			}
		}
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidValue, err)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("%w: logging.format: %q (want console or json)", ErrInvalidValue, c.Logging.Format)
	}
	return nil
}

func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// A value containing a path separator is read as a file; anything else is a
// name searched in the current directory then the user config directory.
// Values absent from the file keep their defaults. A missing file is an
// error, there is no silent fallback.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.ReadFile(configPath, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}
	if cfg.Notations == nil {
		cfg.Notations = map[string]NotationConfig{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchPaths lists the candidate files for a config name in lookup order.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(dir, AppName, name+ext))
		}
	}
	return paths
}

func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
