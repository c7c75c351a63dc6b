package hints

// Notes:
// - Tests that touch IsInContainer or the environment cannot use t.Parallel().
// These are acceptable gaps: we test observable behavior through environment manipulation.

import (
	"strings"
	"testing"
)

func TestForConverterUnusable(t *testing.T) {
	t.Setenv("SCORERENDER_CONVERT_BIN", "")

	hint := ForConverterUnusable("convert", "SCORERENDER_CONVERT_BIN")
	if !strings.HasPrefix(hint, "\n  hint: ") {
		t.Errorf("hint %q should start with the hint prefix", hint)
	}
	if !strings.Contains(hint, "ImageMagick") {
		t.Error("expected ImageMagick install suggestion")
	}
	if !strings.Contains(hint, "SCORERENDER_CONVERT_BIN") {
		t.Error("expected env var suggestion")
	}
}

func TestForConverterUnusable_EnvAlreadySet(t *testing.T) {
	t.Setenv("SCORERENDER_LILYPOND_BIN", "/opt/lilypond")

	hint := ForConverterUnusable("lilypond", "SCORERENDER_LILYPOND_BIN")
	if strings.Contains(hint, "SCORERENDER_LILYPOND_BIN") {
		t.Error("should not suggest an env var that is already set")
	}
	if !strings.Contains(hint, "install lilypond") {
		t.Errorf("hint = %q, want install suggestion", hint)
	}
}

func TestForConversionFailure(t *testing.T) {
	orig := IsInContainer
	defer func() { IsInContainer = orig }()

	IsInContainer = func() bool { return false }
	if h := ForConversionFailure(); !strings.Contains(h, "policy.xml") || strings.Contains(h, "slim") {
		t.Errorf("host hint = %q", h)
	}

	IsInContainer = func() bool { return true }
	if h := ForConversionFailure(); !strings.Contains(h, "slim images") {
		t.Errorf("container hint = %q", h)
	}
}

func TestSimpleHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"timeout", ForTimeout(), "--timeout"},
		{"directory", ForDirectoryNotWritable("--cache-dir"), "--cache-dir"},
		{"notations", ForUnknownNotation([]string{"abc", "mup"}), "available: abc, mup"},
		{"styles", ForUnknownStyle([]string{"dark", "default"}), "built-in styles: dark, default"},
		{"config", ForConfigNotFound([]string{"x.yaml", "/home/u/.config/scorerender/x.yaml"}), "create /home/u/.config/scorerender/x.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !strings.Contains(tt.got, tt.want) {
				t.Errorf("%s hint = %q, want it to contain %q", tt.name, tt.got, tt.want)
			}
		})
	}

	if ForUnknownNotation(nil) != "" {
		t.Error("no notations should produce no hint")
	}
	if ForUnknownStyle(nil) != "" {
		t.Error("no styles should produce no hint")
	}
}
