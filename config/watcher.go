package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/actionpipe/actionpipe/guard"
)

// reloadKey is the guard key under which reload bursts are debounced.
const reloadKey = "config.reload"

// Watcher reloads a configuration file when it changes on disk. Rapid
// successive writes (editors often write, truncate, and rename) are
// debounced so the callback fires once per burst.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	guard    *guard.Guard
	debounce time.Duration
	onChange func(*Config, error)
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the reload debounce window. Default 250ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for watch lifecycle messages.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watch starts watching path and invokes onChange with the reloaded
// configuration (or the load error) after each debounced change burst.
//
// The parent directory is watched rather than the file itself because many
// editors replace files via rename.
func Watch(path string, onChange func(*Config, error), opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     path,
		watcher:  fw,
		guard:    guard.New(),
		debounce: 250 * time.Millisecond,
		onChange: onChange,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			go w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "path", w.path, "error", err)
		case <-w.done:
			return
		}
	}
}

// reload waits out the debounce window; only the last event of a burst
// passes the guard and triggers the callback.
func (w *Watcher) reload() {
	if !w.guard.Debounce(reloadKey, w.debounce) {
		return
	}

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", "path", w.path, "error", err)
	} else {
		w.logger.Debug("config reloaded", "path", w.path)
	}
	w.onChange(cfg, err)
}

// Close stops watching and cancels any pending reload.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.guard.ClearAll()
	return w.watcher.Close()
}
