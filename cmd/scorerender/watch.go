package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDebounce coalesces the burst of events editors emit for one save.
const watchDebounce = 150 * time.Millisecond

// runWatchCmd executes the watch command: render the inputs once, then again
// whenever one of them changes, until interrupted.
func runWatchCmd(ctx context.Context, args []string, env *Environment) error {
	f, paths, err := parseRenderFlags("watch", args, env.Stderr)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return ErrNoInput
	}
	cfg, err := loadSettings(&f.common, &f.engine, &f.request, env)
	if err != nil {
		return err
	}

	return withApp(cfg, env, func(a app) error {
		return watch(ctx, a, f, paths, env, nil)
	})
}

// watch blocks until ctx is done. ready, when non-nil, is closed once the
// watcher is registered and the initial render finished.
func watch(ctx context.Context, a app, f *renderFlags, paths []string, env *Environment, ready chan<- struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	// Files are matched by name inside watched directories so that editors
	// replacing the file through a rename are still seen.
	files := map[string]bool{}
	var initial []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		dir := p
		if !info.IsDir() {
			dir = filepath.Dir(p)
			files[filepath.Clean(p)] = true
			initial = append(initial, p)
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	wanted := func(name string) bool {
		if files[filepath.Clean(name)] {
			return true
		}
		if len(files) > 0 && !isWatchedDir(paths, name) {
			return false
		}
		_, ok := a.Renderer.NotationForFile(name)
		return ok
	}

	if len(initial) > 0 {
		renderFiles(ctx, a, f, initial, env)
	}
	if ready != nil {
		close(ready)
	}
	a.Log.Info("watching", zap.Strings("paths", paths))

	pending := map[string]bool{}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !wanted(ev.Name) {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.Log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			batch := make([]string, 0, len(pending))
			for name := range pending {
				if info, err := os.Stat(name); err == nil && info.Mode().IsRegular() {
					batch = append(batch, name)
				}
			}
			clear(pending)
			sort.Strings(batch)
			if len(batch) > 0 {
				renderFiles(ctx, a, f, batch, env)
			}
		}
	}
}

// isWatchedDir reports whether name sits directly in one of the directory
// arguments.
func isWatchedDir(paths []string, name string) bool {
	dir := filepath.Clean(filepath.Dir(name))
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() && filepath.Clean(p) == dir {
			return true
		}
	}
	return false
}
