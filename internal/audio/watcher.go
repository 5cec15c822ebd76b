package audio

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// CacheInvalidator drops decoded sounds for a path.
type CacheInvalidator interface {
	InvalidateCache(path string)
}

// Watcher watches sound files and invalidates the player cache when they change.
type Watcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	target  CacheInvalidator

	files map[string]bool // cleaned file paths
	dirs  map[string]bool // directories registered with fsnotify

	done    chan struct{}
	running bool
}

// NewWatcher creates a watcher that invalidates target's cache.
func NewWatcher(target CacheInvalidator, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		logger:  logger,
		watcher: fw,
		target:  target,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a sound file. The containing directory is watched, which keeps
// working when editors replace the file instead of writing in place.
func (w *Watcher) Watch(path string) error {
	if path == "" {
		return nil
	}
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.files[path] = true
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// Start begins processing file events.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	go w.watch()
}

// watch is the main event loop.
func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}

			path := filepath.Clean(event.Name)
			w.mu.Lock()
			watched := w.files[path]
			w.mu.Unlock()
			if !watched {
				continue
			}

			w.logger.Debug("sound file changed, invalidating cache", "path", path)
			w.target.InvalidateCache(path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("sound watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.running = false
		close(w.done)
	}
	return w.watcher.Close()
}
