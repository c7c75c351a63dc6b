package scorerender

import (
	"context"
	"os"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRenderer_Check - Diagnostics report
// ---------------------------------------------------------------------------

func TestRenderer_Check(t *testing.T) {
	t.Parallel()

	env, _ := newRemoteEnv(t, nil)
	rep := env.r.Check(context.Background())

	if !rep.OK() {
		t.Fatalf("report should be OK: %+v", rep)
	}
	if rep.Converter.Version == "" || !rep.Converter.Required {
		t.Errorf("Converter = %+v", rep.Converter)
	}
	if len(rep.Renderers) != 2 {
		t.Fatalf("Renderers = %+v, want demo and remote", rep.Renderers)
	}
	if rep.Renderers[0].Name != "demo" || !rep.Renderers[0].OK() || rep.Renderers[0].Version != "demo-render 1.0" {
		t.Errorf("demo status = %+v", rep.Renderers[0])
	}
	if !rep.Renderers[1].Remote {
		t.Errorf("remote status = %+v", rep.Renderers[1])
	}
	if got := rep.Usable(); len(got) != 2 {
		t.Errorf("Usable() = %v", got)
	}
	if _, err := os.Stat(env.cacheDir); err != nil {
		t.Errorf("Check should create the cache directory: %v", err)
	}
}

func TestRenderer_CheckFailures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, WithProgram("demo", "/nonexistent/demo-render"))
	if err := os.WriteFile(env.tempDir, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	rep := env.r.Check(context.Background())
	if rep.OK() {
		t.Error("report with an unwritable temp dir should not be OK")
	}
	if rep.TempDir.OK() {
		t.Error("TempDir should report an error")
	}
	if !rep.CacheDir.OK() {
		t.Errorf("CacheDir = %+v", rep.CacheDir)
	}
	if rep.Renderers[0].OK() {
		t.Error("missing renderer should report an error")
	}
	if len(rep.Usable()) != 0 {
		t.Errorf("Usable() = %v, want none", rep.Usable())
	}
}
