package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/go-scorerender/internal/config"
)

// Environment variable names.
const (
	envPrefix     = "SCORERENDER_"
	envConfigPath = "SCORERENDER_CONFIG"
	envCacheDir   = "SCORERENDER_CACHE_DIR"
	envTempDir    = "SCORERENDER_TEMP_DIR"
	envKeepTemp   = "SCORERENDER_KEEP_TEMP"
	envConvertBin = "SCORERENDER_CONVERT_BIN"
	envTimeout    = "SCORERENDER_TIMEOUT"
	envWorkers    = "SCORERENDER_WORKERS"
	envWidth      = "SCORERENDER_WIDTH"
	envLogLevel   = "SCORERENDER_LOG_LEVEL"
	envLogFormat  = "SCORERENDER_LOG_FORMAT"
)

// Per-notation suffixes: SCORERENDER_<ID>_BIN and friends.
var notationEnvSuffixes = []string{"BIN", "MAGIC_FILE", "URL"}

// envConfig holds configuration from environment variables.
// Provides CI-friendly overrides without requiring YAML files.
// Numeric values that fail to parse are kept as text so Validate reports them.
type envConfig struct {
	ConfigPath string
	CacheDir   string
	TempDir    string
	KeepTemp   string
	ConvertBin string
	Timeout    string
	Workers    string
	Width      string
	LogLevel   string
	LogFormat  string
	Notations  map[string]config.NotationConfig
}

// knownEnvVars lists the valid SCORERENDER_* variables for the given
// notation ids. Used to detect typos.
func knownEnvVars(ids []string) map[string]bool {
	known := map[string]bool{
		envConfigPath: true,
		envCacheDir:   true,
		envTempDir:    true,
		envKeepTemp:   true,
		envConvertBin: true,
		envTimeout:    true,
		envWorkers:    true,
		envWidth:      true,
		envLogLevel:   true,
		envLogFormat:  true,
	}
	for _, id := range ids {
		for _, suffix := range notationEnvSuffixes {
			known[envName(id, suffix)] = true
		}
	}
	return known
}

// loadEnvConfig reads every recognized SCORERENDER_* variable.
func loadEnvConfig(getenv func(string) string, ids []string) *envConfig {
	ec := &envConfig{
		ConfigPath: getenv(envConfigPath),
		CacheDir:   getenv(envCacheDir),
		TempDir:    getenv(envTempDir),
		KeepTemp:   getenv(envKeepTemp),
		ConvertBin: getenv(envConvertBin),
		Timeout:    getenv(envTimeout),
		Workers:    getenv(envWorkers),
		Width:      getenv(envWidth),
		LogLevel:   getenv(envLogLevel),
		LogFormat:  getenv(envLogFormat),
		Notations:  map[string]config.NotationConfig{},
	}
	for _, id := range ids {
		nc := config.NotationConfig{
			Bin:       getenv(envName(id, "BIN")),
			MagicFile: getenv(envName(id, "MAGIC_FILE")),
			URL:       getenv(envName(id, "URL")),
		}
		if nc != (config.NotationConfig{}) {
			ec.Notations[id] = nc
		}
	}
	return ec
}

// warnUnknownEnvVars writes a warning for every unrecognized SCORERENDER_*
// variable, catching typos like SCORERENDER_ABC_BINARY.
func warnUnknownEnvVars(w io.Writer, environ []string, ids []string) {
	known := knownEnvVars(ids)
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !known[name] {
			fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
		}
	}
}

// applyEnvConfig overlays environment values onto cfg.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags).
func applyEnvConfig(ec *envConfig, cfg *config.Config) error {
	setString(&cfg.Cache.Dir, ec.CacheDir)
	setString(&cfg.Temp.Dir, ec.TempDir)
	setString(&cfg.Convert.Bin, ec.ConvertBin)
	setString(&cfg.Render.Timeout, ec.Timeout)
	setString(&cfg.Logging.Level, ec.LogLevel)
	setString(&cfg.Logging.Format, ec.LogFormat)

	if ec.KeepTemp != "" {
		keep, err := strconv.ParseBool(ec.KeepTemp)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", config.ErrInvalidValue, envKeepTemp, err)
		}
		cfg.Temp.Keep = keep
	}
	if ec.Workers != "" {
		n, err := strconv.Atoi(ec.Workers)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", config.ErrInvalidValue, envWorkers, err)
		}
		cfg.Render.Workers = n
	}
	if ec.Width != "" {
		n, err := strconv.Atoi(ec.Width)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", config.ErrInvalidValue, envWidth, err)
		}
		cfg.Render.MaxWidth = n
	}

	if cfg.Notations == nil {
		cfg.Notations = map[string]config.NotationConfig{}
	}
	for id, override := range ec.Notations {
		nc := cfg.Notations[id]
		setString(&nc.Bin, override.Bin)
		setString(&nc.MagicFile, override.MagicFile)
		setString(&nc.URL, override.URL)
		cfg.Notations[id] = nc
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
