package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{" warn ", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidLevel) {
				t.Errorf("error should wrap ErrInvalidLevel, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Config("debug", FormatJSON)
	if err != nil {
		t.Fatalf("Config error: %v", err)
	}
	if cfg.Encoding != "json" {
		t.Errorf("Encoding = %q, want json", cfg.Encoding)
	}
	if cfg.Level.Level() != zapcore.DebugLevel {
		t.Errorf("Level = %v, want debug", cfg.Level.Level())
	}

	cfg, err = Config("", "")
	if err != nil {
		t.Fatalf("Config error: %v", err)
	}
	if cfg.Encoding != "console" {
		t.Errorf("Encoding = %q, want console", cfg.Encoding)
	}
	if len(cfg.OutputPaths) != 1 || cfg.OutputPaths[0] != "stderr" {
		t.Errorf("OutputPaths = %v, want [stderr]", cfg.OutputPaths)
	}

	if _, err := Config("info", "xml"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Config(xml) error = %v, want ErrInvalidFormat", err)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	logger, err := New("warn", FormatConsole)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("warn logger should not enable info")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("warn logger should enable error")
	}

	if _, err := New("loud", ""); err == nil {
		t.Error("New should reject unknown levels")
	}
}
