// Package yamlutil isolates the YAML library behind size-limited helpers.
package yamlutil

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// MaxInputSize bounds configuration input.
const MaxInputSize = 1 << 20

var (
	ErrEmpty          = errors.New("yamlutil: empty input")
	ErrNilDestination = errors.New("yamlutil: nil destination")
	ErrTooLarge       = errors.New("yamlutil: input exceeds maximum size")
)

func check(data []byte, v any) error {
	switch {
	case v == nil:
		return ErrNilDestination
	case len(data) == 0:
		return ErrEmpty
	case len(data) > MaxInputSize:
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), MaxInputSize)
	}
	return nil
}

// Unmarshal decodes data into v, rejecting keys that do not map to a field.
// Fields absent from data keep the values v already holds, so callers can
// decode over a populated default.
func Unmarshal(data []byte, v any) error {
	if err := check(data, v); err != nil {
		return err
	}
	if err := yaml.UnmarshalWithOptions(data, v, yaml.Strict()); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}

// ReadFile reads at most MaxInputSize bytes from path and decodes them with
// Unmarshal. The returned error wraps os.ErrNotExist for missing files.
func ReadFile(path string, v any) error {
	f, err := os.Open(path) // #nosec G304 -- configuration path chosen by the user
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, MaxInputSize+1))
	if err != nil {
		return fmt.Errorf("yamlutil: reading %s: %w", path, err)
	}
	return Unmarshal(data, v)
}

// Marshal encodes v as YAML.
func Marshal(v any) ([]byte, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yamlutil: %w", err)
	}
	return out, nil
}
