package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher debounces filesystem change events on a single config file and
// hot-swaps the process-wide config holder, adapted from the pack's
// directory-watching debounce pattern.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	path        string
	current     Config
	log         *zap.Logger
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks reload activity for observability.
type WatcherStats struct {
	ReloadsApplied int
	ReloadErrors   int
	LastReloadAt   time.Time
}

// NewWatcher loads path once synchronously and returns a Watcher holding
// that initial config. Call Start to begin hot-reloading.
func NewWatcher(path string, log *zap.Logger) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		path:        path,
		current:     cfg,
		log:         log,
		debounceDur: 250 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Current returns the most recently loaded config. Safe for concurrent use.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching the config file's directory for changes. It is
// non-blocking; reload events are handled in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.log.Warn("config: initial watch failed, hot-reload disabled", zap.String("dir", dir), zap.Error(err))
	}

	go w.run(ctx)
	return nil
}

// Stop halts the watcher and releases its OS resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		w.log.Warn("config: error closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var pending bool
	debounce := time.NewTicker(w.debounceDur)
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) == filepath.Clean(w.path) {
				pending = true
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config: watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.ReloadErrors++
			w.mu.Unlock()
		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config: reload failed, keeping previous config", zap.String("path", w.path), zap.Error(err))
		w.mu.Lock()
		w.stats.ReloadErrors++
		w.mu.Unlock()
		return
	}
	w.mu.Lock()
	w.current = cfg
	w.stats.ReloadsApplied++
	w.stats.LastReloadAt = time.Now()
	w.mu.Unlock()
	w.log.Info("config: reloaded", zap.String("path", w.path))
}
