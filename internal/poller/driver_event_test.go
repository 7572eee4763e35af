package poller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianly1003/sfpoll/internal/testutil"
	"github.com/rs/zerolog"
)

func watchdogOptions(dirs testDirs) Options {
	opts := testOptions(dirs)
	opts.Continuous = true
	opts.UseWatchdog = true
	opts.WatchdogCheckInterval = time.Hour
	return opts
}

func exists(dir, name string) func() bool {
	return func() bool {
		_, err := os.Stat(filepath.Join(dir, name))
		return err == nil
	}
}

func startPoll(t *testing.T, p *Poller) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Poll(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Poll() did not return")
	}
}

func TestWatchdog_InitialSweepAndEvents(t *testing.T) {
	dirs := newTestDirs(t)
	testutil.WriteFiles(t, dirs.in, "existing.txt")

	notifier := testutil.NewMockNotifier()
	p := newTestPoller(watchdogOptions(dirs), WithNotifier(notifier), WithProcessor(testutil.NewMockProcessor()))
	cancel, done := startPoll(t, p)

	<-notifier.Started()
	eventually(t, "initial sweep", exists(dirs.out, "existing.txt"))

	abs, _ := filepath.Abs(dirs.in)
	if notifier.Dir() != abs {
		t.Errorf("watched dir = %s, want %s", notifier.Dir(), abs)
	}

	testutil.WriteFiles(t, dirs.in, "new.txt")
	notifier.Emit(filepath.Join(dirs.in, "new.txt"))
	eventually(t, "event-driven cycle", exists(dirs.out, "new.txt.done"))

	cancel()
	waitDone(t, done)

	if starts, stops := notifier.Counts(); starts != 1 || stops != 1 {
		t.Errorf("notifier starts=%d stops=%d, want 1 and 1", starts, stops)
	}
	if got := p.Stats().Mode; got != ModeWatchdog {
		t.Errorf("Stats().Mode = %s, want %s", got, ModeWatchdog)
	}
}

func TestWatchdog_FallbackSweep(t *testing.T) {
	dirs := newTestDirs(t)

	notifier := testutil.NewMockNotifier()
	opts := watchdogOptions(dirs)
	opts.WatchdogCheckInterval = 10 * time.Millisecond
	p := newTestPoller(opts, WithNotifier(notifier))
	_, done := startPoll(t, p)

	<-notifier.Started()
	testutil.WriteFiles(t, dirs.in, "missed.txt")
	eventually(t, "fallback sweep", exists(dirs.out, "missed.txt"))

	p.Stop()
	waitDone(t, done)
}

func TestWatchdog_DrainsPastMaxFiles(t *testing.T) {
	dirs := newTestDirs(t)
	testutil.WriteFiles(t, dirs.in, "1.txt", "2.txt", "3.txt", "4.txt", "5.txt")

	notifier := testutil.NewMockNotifier()
	opts := watchdogOptions(dirs)
	opts.MaxFiles = 2
	processor := testutil.NewMockProcessor()
	p := newTestPoller(opts, WithNotifier(notifier), WithProcessor(processor))
	cancel, done := startPoll(t, p)

	eventually(t, "all files drained", func() bool { return processor.CallCount() == 5 })
	cancel()
	waitDone(t, done)

	if got := testutil.ListDir(t, dirs.in); len(got) != 0 {
		t.Errorf("input dir = %v, want empty", got)
	}
}

func TestWatchdog_FailingFilesEndDrain(t *testing.T) {
	dirs := newTestDirs(t)
	testutil.WriteFiles(t, dirs.in, "a.txt", "b.txt")

	notifier := testutil.NewMockNotifier()
	opts := watchdogOptions(dirs)
	opts.MaxFiles = 2
	processor := testutil.NewMockProcessor()
	processor.FailOn("a.txt", errors.New("bad"))
	processor.FailOn("b.txt", errors.New("bad"))
	p := newTestPoller(opts, WithNotifier(notifier), WithProcessor(processor))
	cancel, done := startPoll(t, p)

	eventually(t, "initial drain", func() bool { return processor.CallCount() == 2 })
	// Give a runaway drain the chance to show up.
	time.Sleep(50 * time.Millisecond)
	if got := processor.CallCount(); got != 2 {
		t.Errorf("processor calls = %d, want 2", got)
	}

	notifier.Emit(filepath.Join(dirs.in, "a.txt"))
	eventually(t, "retry on event", func() bool { return processor.CallCount() == 4 })

	cancel()
	waitDone(t, done)
}

func TestWatchdog_StartError(t *testing.T) {
	dirs := newTestDirs(t)

	notifier := testutil.NewMockNotifier()
	notifier.SetStartError(errors.New("inotify limit reached"))
	p := newTestPoller(watchdogOptions(dirs), WithNotifier(notifier))

	err := p.Poll(context.Background())
	if err == nil {
		t.Fatal("Poll() error = nil, want notifier error")
	}
	if p.IsRunning() {
		t.Errorf("IsRunning() = true after failed start")
	}
}

func TestWatchdog_RealNotifier(t *testing.T) {
	dirs := newTestDirs(t)

	p := newTestPoller(watchdogOptions(dirs), WithProcessor(testutil.NewMockProcessor()))
	cancel, done := startPoll(t, p)

	eventually(t, "initial cycle", func() bool { return p.Stats().Cycles >= 1 })
	testutil.WriteFiles(t, dirs.in, "live.txt")
	eventually(t, "fsnotify-driven cycle", exists(dirs.out, "live.txt.done"))

	cancel()
	waitDone(t, done)
}

func TestWatchdog_CyclesNeverOverlap(t *testing.T) {
	dirs := newTestDirs(t)
	testutil.WriteFiles(t, dirs.in, "a.txt")

	var active, highWater atomic.Int32
	enter := func() {
		n := active.Add(1)
		for {
			hw := highWater.Load()
			if n <= hw || highWater.CompareAndSwap(hw, n) {
				return
			}
		}
	}
	leave := func() { active.Add(-1) }

	validator := testutil.NewMockValidator(true)
	validator.SetCheckFunc(func(path string) bool {
		enter()
		defer leave()
		return true
	})

	blocked := make(chan struct{})
	release := make(chan struct{})
	processor := testutil.NewMockProcessor()
	processor.SetProcessFunc(func(path, outputDir string) ([]string, error) {
		enter()
		defer leave()
		if filepath.Base(path) == "a.txt" {
			close(blocked)
			<-release
		}
		return nil, nil
	})

	opts := watchdogOptions(dirs)
	opts.Verbose = true
	opts.WatchdogCheckInterval = 10 * time.Millisecond

	var buf syncBuffer
	notifier := testutil.NewMockNotifier()
	p := New(opts,
		WithLogger(zerolog.New(&buf)),
		WithNotifier(notifier),
		WithValidator(validator),
		WithProcessor(processor),
	)
	_, done := startPoll(t, p)

	<-blocked
	testutil.WriteFiles(t, dirs.in, "b.txt")
	for i := 0; i < 5; i++ {
		notifier.Emit(filepath.Join(dirs.in, "b.txt"))
	}
	// Let the fallback ticker fire a few times.
	time.Sleep(50 * time.Millisecond)

	if got := p.Stats().Cycles; got != 1 {
		t.Errorf("cycles while blocked = %d, want 1", got)
	}
	if got := strings.Count(buf.String(), `"message":"start polling"`); got != 1 {
		t.Errorf("listing passes while blocked = %d, want 1", got)
	}
	if !p.IsBusy() {
		t.Error("IsBusy() = false while processing")
	}

	close(release)
	eventually(t, "b.txt processed", exists(dirs.out, "b.txt"))

	eventDrains := func() int { return strings.Count(buf.String(), `"trigger":"event"`) }
	eventually(t, "coalesced event drain", func() bool { return eventDrains() >= 1 })
	time.Sleep(30 * time.Millisecond)

	p.Stop()
	waitDone(t, done)

	if got := eventDrains(); got != 1 {
		t.Errorf("event-triggered drains = %d, want 1", got)
	}
	if got := highWater.Load(); got != 1 {
		t.Errorf("concurrent callback high-water mark = %d, want 1", got)
	}
}
