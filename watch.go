package flowspec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/flowspec/pkg/config"
)

// watchSettle is how long Watch waits after the last change before reloading.
const watchSettle = 100 * time.Millisecond

// Watch reloads the engine whenever the workflow config or the validation
// file changes, sending the changed path on the returned channel after each
// successful reload. The channel is closed when ctx is done.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if e.preloaded || e.root == "" {
		return nil, fmt.Errorf("engine has no project root to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(e.root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", e.root, err)
	}
	validationDir := filepath.Join(e.root, filepath.Dir(ValidationFile))
	validationPath := filepath.Join(e.root, ValidationFile)
	dirWatched := e.watchDir(fsw, validationDir)

	watched := map[string]bool{filepath.Base(ValidationFile): true}
	for _, name := range config.FileNames {
		watched[name] = true
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer fsw.Close()

		var (
			timer   *time.Timer
			fire    <-chan time.Time
			pending string
		)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				name := event.Name
				if !dirWatched && filepath.Clean(name) == validationDir && event.Has(fsnotify.Create) {
					// Created after Watch started: watch it, and pick up a
					// validation file written before the watch was in place.
					if dirWatched = e.watchDir(fsw, validationDir); !dirWatched {
						continue
					}
					if _, err := os.Stat(validationPath); err != nil {
						continue
					}
					name = validationPath
				} else if !watched[filepath.Base(name)] || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				pending = name
				if timer == nil {
					timer = time.NewTimer(watchSettle)
				} else {
					timer.Reset(watchSettle)
				}
				fire = timer.C
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				e.logger.Warn("Watch: watcher error", "err", err)
			case <-fire:
				fire = nil
				if err := e.Reload(); err != nil {
					e.logger.Error("Watch: reload failed, keeping previous config", "path", pending, "err", err)
					continue
				}
				select {
				case out <- pending:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// watchDir adds dir to the watcher when it exists.
func (e *Engine) watchDir(fsw *fsnotify.Watcher, dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	if err := fsw.Add(dir); err != nil {
		e.logger.Warn("Watch: validation directory not watched", "path", dir, "err", err)
		return false
	}
	return true
}
