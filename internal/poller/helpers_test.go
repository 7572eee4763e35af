package poller

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type testDirs struct {
	in  string
	out string
	tmp string
}

func newTestDirs(t *testing.T) testDirs {
	t.Helper()
	return testDirs{in: t.TempDir(), out: t.TempDir(), tmp: t.TempDir()}
}

// testOptions returns non-continuous options for dirs without a staging
// directory.
func testOptions(dirs testDirs) Options {
	opts := DefaultOptions()
	opts.InputDir = dirs.in
	opts.OutputDir = dirs.out
	opts.PollWait = 10 * time.Millisecond
	opts.OutputTimestamp = false
	return opts
}

func newTestPoller(opts Options, options ...Option) *Poller {
	options = append([]Option{WithLogger(zerolog.Nop())}, options...)
	return New(opts, options...)
}

// prepare performs the per-poll setup so that listFiles and processFiles can
// be called directly.
func prepare(t *testing.T, p *Poller) {
	t.Helper()
	opts, err := p.opts.normalize()
	if err != nil {
		t.Fatalf("normalize() error = %v", err)
	}
	p.active = opts
	p.log = p.buildLogger(opts)
	p.blacklist.Reset()
	p.stopped.Store(false)
}

func eventually(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
