// Package watch provides filesystem watching for rebuild-on-change mode.
// It watches the manifest file and every source directory the file rules
// reference, debounces bursts of change events, and invokes a rebuild
// callback once per quiet period.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fyind/setupkit/pkg/setup/logging"
)

// DefaultDebounce is the quiet period after the last change event before a
// rebuild fires.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches build inputs and coalesces change events into rebuilds.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	paths    map[string]bool
	mu       sync.Mutex
	closed   bool
}

// New creates a Watcher. A non-positive debounce falls back to
// DefaultDebounce.
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:  fsw,
		debounce: debounce,
		paths:    make(map[string]bool),
	}, nil
}

// Watch starts watching a path. Directories are watched recursively;
// symlinks are not followed.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		// Watch the containing directory so editors that replace the
		// file on save (rename-over) are still seen.
		return w.addWatch(filepath.Dir(absRoot))
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path)
		}
		return nil
	})
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}
	if err := w.watcher.Add(path); err != nil {
		logging.Get("watch").Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = true
	return nil
}

// Run blocks until the context is cancelled, invoking onChange once per
// debounced burst of filesystem events. New directories appearing under a
// watched root are picked up automatically.
func (w *Watcher) Run(ctx context.Context, onChange func()) {
	logger := logging.Get("watch")

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			w.handleEvent(event)

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer, fire = nil, nil
			if onChange != nil {
				onChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watch error", "error", err)
		}
	}
}

// handleEvent keeps the watch list in sync with directory churn.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Lstat(event.Name)
		if err != nil || info.Mode()&fs.ModeSymlink != 0 || !info.IsDir() {
			return
		}
		_ = w.Watch(event.Name)

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.mu.Lock()
		for path := range w.paths {
			if path == event.Name || isSubPath(path, event.Name) {
				_ = w.watcher.Remove(path)
				delete(w.paths, path)
			}
		}
		w.mu.Unlock()
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
