package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid file system events per path.
type Debouncer struct {
	window   time.Duration
	callback func(path string)

	mu       sync.Mutex
	pending  map[string]*time.Timer
	stopped  bool
	inflight sync.WaitGroup
}

// NewDebouncer creates a new debouncer with the given window and callback.
func NewDebouncer(window time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
		pending:  make(map[string]*time.Timer),
	}
}

// Add queues an event for debouncing. A pending event for the same path
// restarts its window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[path]; ok {
		existing.Stop()
	}
	d.pending[path] = time.AfterFunc(d.window, func() {
		d.fire(path)
	})
}

// Pending returns the number of paths waiting for their window to expire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// fire executes the callback for a path.
func (d *Debouncer) fire(path string) {
	d.mu.Lock()
	if _, ok := d.pending[path]; !ok || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	d.inflight.Add(1)
	d.mu.Unlock()

	defer d.inflight.Done()
	if d.callback != nil {
		d.callback(path)
	}
}

// Stop cancels all pending timers and waits for running callbacks.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for _, timer := range d.pending {
		timer.Stop()
	}
	d.pending = make(map[string]*time.Timer)
	d.mu.Unlock()

	d.inflight.Wait()
}
