package fitsfile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher evicts files from a Cache when they change on disk, so a
// long-running process never serves a stale decode of an overwritten file.
//
// It watches the parent directory of every file the cache loads; directories
// are added lazily as files are loaded.
type Watcher struct {
	mu      sync.Mutex
	cache   *Cache
	log     *zap.Logger
	watcher *fsnotify.Watcher
	dirs    map[string]bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for cache and hooks it into cache loads.
// Files already in the cache are not watched.
func NewWatcher(cache *Cache, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		cache:   cache,
		log:     log,
		watcher: fw,
		dirs:    make(map[string]bool),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	cache.setOnLoad(w.track)
	return w, nil
}

// Start begins handling events in a goroutine. It returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run(ctx)
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.cache.setOnLoad(nil)

	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	return nil
}

// Dirs returns the number of directories being watched.
func (w *Watcher) Dirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

func (w *Watcher) track(path string) {
	dir := filepath.Dir(cleanPath(path))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.log.Warn("Failed to watch directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	w.dirs[dir] = true
	w.log.Debug("Watching directory", zap.String("dir", dir))
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

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
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if n := w.cache.EvictFile(event.Name); n > 0 {
		w.log.Info("Evicted changed file",
			zap.String("path", event.Name),
			zap.String("op", event.Op.String()))
	}
}
