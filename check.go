package scorerender

import (
	"context"

	"github.com/alnah/go-scorerender/internal/magick"
	"github.com/alnah/go-scorerender/internal/process"
)

// ProgramStatus is the probe outcome of one external program.
type ProgramStatus struct {
	Name     string `json:"name"`               // "convert" or a notation id
	Path     string `json:"path,omitempty"`     // resolved binary, or endpoint for remote notations
	Version  string `json:"version,omitempty"`  // matched banner line
	Remote   bool   `json:"remote,omitempty"`   // not probed; reached over HTTP
	Error    string `json:"error,omitempty"`    // empty when usable
	Required bool   `json:"required,omitempty"` // failure makes every render fail
}

// OK reports whether the program is usable.
func (s ProgramStatus) OK() bool { return s.Error == "" }

// DirStatus is the writability of one directory.
type DirStatus struct {
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the directory accepts new files.
func (s DirStatus) OK() bool { return s.Error == "" }

// Report is the result of Renderer.Check.
type Report struct {
	Converter ProgramStatus   `json:"converter"`
	Renderers []ProgramStatus `json:"renderers"`
	CacheDir  DirStatus       `json:"cacheDir"`
	TempDir   DirStatus       `json:"tempDir"`
}

// OK reports whether the converter and both directories are usable.
// Missing renderers only disable their notation.
func (r *Report) OK() bool {
	return r.Converter.OK() && r.CacheDir.OK() && r.TempDir.OK()
}

// Usable returns the notation ids whose renderer passed its probe.
func (r *Report) Usable() []string {
	var ids []string
	for _, s := range r.Renderers {
		if s.OK() {
			ids = append(ids, s.Name)
		}
	}
	return ids
}

// Check probes every configured program and verifies both directories,
// creating them when missing. Remote notations are listed but not contacted.
func (r *Renderer) Check(ctx context.Context) *Report {
	rep := &Report{
		Converter: r.checkProgram(ctx, "convert", r.cfg.convertBin, magick.Identity, true),
		CacheDir:  DirStatus{Path: r.cache.Dir()},
		TempDir:   DirStatus{Path: r.cfg.tempDir},
	}

	for _, id := range r.registry.IDs() {
		n, _ := r.registry.Get(id)
		if n.IsRemote() {
			rep.Renderers = append(rep.Renderers, ProgramStatus{Name: id, Path: r.endpoint(n), Remote: true})
			continue
		}
		rep.Renderers = append(rep.Renderers, r.checkProgram(ctx, id, r.programPath(n), n.Identity, false))
	}

	if err := r.cache.Prepare(); err != nil {
		rep.CacheDir.Error = err.Error()
	}
	if err := r.prepareTempDir(); err != nil {
		rep.TempDir.Error = err.Error()
	}
	return rep
}

func (r *Renderer) checkProgram(ctx context.Context, name, bin string, identity process.Identity, required bool) ProgramStatus {
	st := ProgramStatus{Name: name, Path: bin, Required: required}

	path, err := r.probe(ctx, bin, identity)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Path = path

	r.mu.Lock()
	st.Version = r.probed[path]
	r.mu.Unlock()
	return st
}
