package daemon

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/chime/internal/config"
)

// DefaultConfigPollInterval is how often the config file is checked.
const DefaultConfigPollInterval = time.Second

// ConfigWatcher polls the config file and applies every revision that loads
// and validates. A broken revision is logged and the running config stays.
type ConfigWatcher struct {
	path     string
	apply    func(*config.Config)
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	seen    time.Time // mtime of the last revision handled
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewConfigWatcher creates a watcher for path, or for the default config path
// when path is empty. apply receives each new valid config.
func NewConfigWatcher(path string, apply func(*config.Config), logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		var err error
		if path, err = config.Path(); err != nil {
			return nil, err
		}
	}

	return &ConfigWatcher{
		path:     path,
		apply:    apply,
		interval: DefaultConfigPollInterval,
		logger:   logger.With("config", path),
	}, nil
}

// SetPollInterval changes the interval used by the next Start.
func (w *ConfigWatcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interval = interval
}

// Start polls until ctx is cancelled or Stop is called. The revision on disk
// at start is treated as already applied.
func (w *ConfigWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return
	}
	if info, err := os.Stat(w.path); err == nil {
		w.seen = info.ModTime()
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.stopped = make(chan struct{})
	go w.loop(ctx, w.interval, w.stopped)
}

// Stop ends polling and waits for the loop to exit.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	cancel, stopped := w.cancel, w.stopped
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

func (w *ConfigWatcher) loop(ctx context.Context, interval time.Duration, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.poll(); err != nil {
				w.logger.Error("config reload failed, keeping previous config", "error", err)
			}
		}
	}
}

// poll applies the config if the file changed since the last revision
// handled. It reports whether a new config was applied.
func (w *ConfigWatcher) poll() (bool, error) {
	info, err := os.Stat(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	changed := info.ModTime().After(w.seen)
	if changed {
		w.seen = info.ModTime()
	}
	w.mu.Unlock()
	if !changed {
		return false, nil
	}

	cfg, err := config.Load(w.path)
	if err != nil {
		return false, err
	}

	w.logger.Info("config reloaded")
	if w.apply != nil {
		w.apply(cfg)
	}
	return true, nil
}
