// Package watcher implements the directory notifier using fsnotify.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brianly1003/sfpoll/internal/domain"
	"github.com/brianly1003/sfpoll/internal/domain/ports"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher implements the DirectoryNotifier port interface. It watches a
// single directory, non-recursively, for newly created files.
type Watcher struct {
	debounceMS int

	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	dir      string
	onCreate func(path string)
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// Debounce state, nil when debounceMS is zero
	debouncer *Debouncer
}

var _ ports.DirectoryNotifier = (*Watcher)(nil)

// NewWatcher creates a new directory watcher. With a positive debounceMS,
// repeated creation events for the same path within the window are
// delivered once.
func NewWatcher(debounceMS int) *Watcher {
	return &Watcher{debounceMS: debounceMS}
}

// Start begins watching dir.
func (w *Watcher) Start(ctx context.Context, dir string, onCreate func(path string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return domain.ErrNotifierRunning
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)

	w.watcher = watcher
	w.dir = dir
	w.onCreate = onCreate
	w.cancel = cancel
	if w.debounceMS > 0 {
		w.debouncer = NewDebouncer(time.Duration(w.debounceMS)*time.Millisecond, w.deliver)
	}
	w.running = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.eventLoop(watchCtx, watcher)
	}()

	log.Info().
		Str("path", dir).
		Int("debounce_ms", w.debounceMS).
		Msg("directory watcher started")

	return nil
}

// Stop terminates watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false

	if w.cancel != nil {
		w.cancel()
	}
	if w.debouncer != nil {
		w.debouncer.Stop()
		w.debouncer = nil
	}

	var err error
	if w.watcher != nil {
		err = w.watcher.Close()
		w.watcher = nil
	}
	w.mu.Unlock()

	w.wg.Wait()
	log.Info().Str("path", w.dir).Msg("directory watcher stopped")
	return err
}

// IsRunning returns true if the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// eventLoop handles fsnotify events.
func (w *Watcher) eventLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", w.dir).Msg("watcher error")
		}
	}
}

// handleEvent processes a single fsnotify event. Only creations of
// non-directory entries are of interest; a rename into the directory is
// reported by fsnotify as a creation.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}
	if filepath.Dir(event.Name) != filepath.Clean(w.dir) {
		return
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return
	}

	w.mu.RLock()
	debouncer := w.debouncer
	running := w.running
	w.mu.RUnlock()

	if !running {
		return
	}
	if debouncer != nil {
		debouncer.Add(event.Name)
		return
	}
	w.deliver(event.Name)
}

// deliver invokes the creation callback.
func (w *Watcher) deliver(path string) {
	log.Debug().Str("path", path).Msg("file created")
	if w.onCreate != nil {
		w.onCreate(path)
	}
}
