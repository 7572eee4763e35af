// Package poller implements the directory-polling engine.
//
// A Poller repeatedly lists an input directory, hands eligible files to a
// FileProcessor and moves (or deletes) each file and its siblings afterwards.
// Files that keep failing validation are quarantined by a strike counter and
// eventually forced out of the input directory.
//
// Two scheduling modes exist. The fixed-interval mode lists, processes and
// sleeps PollWait whenever a cycle comes back empty. The watchdog mode reacts
// to file-creation events and runs a fallback sweep every
// WatchdogCheckInterval. In both modes at most one cycle runs at a time.
package poller

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/brianly1003/sfpoll/internal/adapters/watcher"
	"github.com/brianly1003/sfpoll/internal/blacklist"
	"github.com/brianly1003/sfpoll/internal/domain"
	"github.com/brianly1003/sfpoll/internal/domain/ports"
	"github.com/brianly1003/sfpoll/internal/sync"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scheduling modes reported in Stats.
const (
	ModeInterval = "interval"
	ModeWatchdog = "watchdog"
)

// logOutput receives the default logger's output.
var logOutput io.Writer = os.Stderr

// Poller polls a directory for files and dispatches them for processing.
type Poller struct {
	opts Options

	validator ports.FileValidator
	processor ports.FileProcessor
	recorder  ports.ProcessingRecorder
	notifier  ports.DirectoryNotifier
	baseLog   zerolog.Logger

	// Set at the start of every Poll.
	active Options
	log    zerolog.Logger

	blacklist *blacklist.Tracker

	listing    atomic.Bool
	processing atomic.Bool
	stopped    atomic.Bool

	// cycleMu serializes listing+processing cycles.
	cycleMu sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc

	statsMu sync.RWMutex
	stats   Stats
}

// Option customizes a Poller.
type Option func(*Poller)

// WithValidator sets the file validator. Without one every file is eligible.
func WithValidator(v ports.FileValidator) Option {
	return func(p *Poller) { p.validator = v }
}

// WithProcessor sets the file processor. Without one files are only moved.
func WithProcessor(fp ports.FileProcessor) Option {
	return func(p *Poller) { p.processor = fp }
}

// WithRecorder sets a recorder that receives the outcome of every file.
func WithRecorder(r ports.ProcessingRecorder) Option {
	return func(p *Poller) { p.recorder = r }
}

// WithNotifier replaces the fsnotify-based notifier used in watchdog mode.
func WithNotifier(n ports.DirectoryNotifier) Option {
	return func(p *Poller) { p.notifier = n }
}

// WithLogger sets the base logger. It should not carry a timestamp: the
// poller adds one when Options.OutputTimestamp is set. Defaults to a plain
// JSON logger on stderr.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Poller) { p.baseLog = l }
}

// New creates a new Poller.
func New(opts Options, options ...Option) *Poller {
	p := &Poller{
		opts:      opts,
		baseLog:   zerolog.New(logOutput),
		blacklist: blacklist.New(),
	}
	for _, o := range options {
		o(p)
	}
	if p.notifier == nil {
		p.notifier = watcher.NewWatcher(0)
	}
	return p
}

// Options returns the configured options.
func (p *Poller) Options() Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

// SetOptions replaces the options used by the next Poll.
func (p *Poller) SetOptions(opts Options) error {
	return p.whileIdle(func() { p.opts = opts })
}

// SetValidator replaces the validator used by the next Poll.
func (p *Poller) SetValidator(v ports.FileValidator) error {
	return p.whileIdle(func() { p.validator = v })
}

// SetProcessor replaces the processor used by the next Poll.
func (p *Poller) SetProcessor(fp ports.FileProcessor) error {
	return p.whileIdle(func() { p.processor = fp })
}

// SetRecorder replaces the recorder used by the next Poll.
func (p *Poller) SetRecorder(r ports.ProcessingRecorder) error {
	return p.whileIdle(func() { p.recorder = r })
}

func (p *Poller) whileIdle(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return domain.ErrPollActive
	}
	fn()
	return nil
}

// Poll validates the options and polls until the input directory is
// exhausted (non-continuous interval mode), Stop is called or ctx is
// cancelled. Stopping is not an error.
func (p *Poller) Poll(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return domain.ErrPollActive
	}
	opts, err := p.opts.normalize()
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.active = opts
	p.log = p.buildLogger(opts)
	p.stopped.Store(false)
	p.blacklist.Reset()
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		p.running = false
		p.cancel = nil
		p.mu.Unlock()
		p.updateStats(func(s *Stats) { s.Running = false })
	}()

	mode := ModeInterval
	if opts.UseWatchdog {
		mode = ModeWatchdog
	}
	p.updateStats(func(s *Stats) {
		*s = Stats{Running: true, Mode: mode, StartedAt: time.Now()}
	})
	p.logParameters(mode)

	if opts.UseWatchdog {
		return p.runWatchdog(runCtx)
	}
	return p.runInterval(runCtx)
}

// Stop requests the running Poll to finish. The file currently being
// processed is completed first. Safe to call from validator and processor
// callbacks and from any goroutine.
func (p *Poller) Stop() {
	p.stopped.Store(true)

	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsStopped returns whether the current or last Poll was stopped.
func (p *Poller) IsStopped() bool {
	return p.stopped.Load()
}

// IsBusy returns true while a listing or processing pass is in progress.
func (p *Poller) IsBusy() bool {
	return p.listing.Load() || p.processing.Load()
}

// IsRunning returns true while Poll is executing.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// shouldStop checks the cooperative cancellation signal. A cancelled
// context counts as a stop request.
func (p *Poller) shouldStop(ctx context.Context) bool {
	if ctx.Err() != nil {
		p.stopped.Store(true)
	}
	return p.stopped.Load()
}

// wait sleeps for d unless ctx is cancelled first. It returns false if the
// wait was interrupted.
func (p *Poller) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		p.stopped.Store(true)
		return false
	case <-t.C:
		return true
	}
}

// buildLogger applies the verbosity and timestamp toggles to the base logger.
func (p *Poller) buildLogger(opts Options) zerolog.Logger {
	ctx := p.baseLog.With().Str("component", "poller")
	if opts.OutputTimestamp {
		ctx = ctx.Timestamp()
	}
	l := ctx.Logger()

	if !opts.Verbose && l.GetLevel() < zerolog.InfoLevel {
		l = l.Level(zerolog.InfoLevel)
	}
	return l
}

func (p *Poller) logParameters(mode string) {
	opts := p.active
	ev := p.log.Debug().
		Str("mode", mode).
		Str("input_dir", opts.InputDir).
		Str("output_dir", opts.OutputDir).
		Bool("continuous", opts.Continuous).
		Int("max_files", opts.MaxFiles).
		Int("blacklist_tries", opts.BlacklistTries)
	if opts.TmpDir != "" {
		ev = ev.Str("tmp_dir", opts.TmpDir)
	}
	if opts.Extensions != nil {
		ev = ev.Strs("extensions", opts.Extensions)
	}
	if len(opts.OtherInputFiles) > 0 {
		ev = ev.Strs("other_input_files", opts.OtherInputFiles)
	}
	if opts.UseWatchdog {
		ev = ev.Dur("watchdog_check_interval", opts.WatchdogCheckInterval)
	} else {
		ev = ev.Dur("poll_wait", opts.PollWait)
	}
	ev.Msg("polling parameters")
}

// progressEvent logs per-file progress at INFO when progress output is
// enabled and at DEBUG otherwise.
func (p *Poller) progressEvent(l zerolog.Logger) *zerolog.Event {
	if p.active.Progress {
		return l.Info()
	}
	return l.Debug()
}

// record hands rec to the recorder, if any.
func (p *Poller) record(ctx context.Context, c *cycle, rec domain.ProcessingRecord) {
	if p.recorder == nil {
		return
	}
	rec.CycleID = c.id
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	if err := p.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		c.log.Warn().Err(err).Str("path", rec.Path).Msg("failed to record outcome")
	}
}

// cycle carries the identity of one listing+processing pass.
type cycle struct {
	id      string
	trigger string
	log     zerolog.Logger
}

func (p *Poller) newCycle(trigger string) *cycle {
	id := uuid.NewString()
	return &cycle{
		id:      id,
		trigger: trigger,
		log:     p.log.With().Str("cycle", id).Logger(),
	}
}

// cycleResult summarizes one runCycle call.
type cycleResult struct {
	listed  int
	handled int
	failed  int
	stopped bool
}

// runCycle performs one listing pass and processes its result. Only one
// cycle runs at a time; callers queue on cycleMu.
func (p *Poller) runCycle(ctx context.Context, trigger string) cycleResult {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	c := p.newCycle(trigger)

	files, ok := p.listFiles(ctx, c)
	if !ok {
		return cycleResult{stopped: true}
	}

	p.updateStats(func(s *Stats) {
		s.Cycles++
		s.Listed += int64(len(files))
		s.Blacklisted = p.blacklist.Len()
		s.LastCycleAt = time.Now()
	})

	if p.active.OutputNumFiles {
		c.log.Info().Int("files", len(files)).Str("trigger", trigger).Msg("files found")
	}

	res := cycleResult{listed: len(files)}
	if len(files) == 0 {
		return res
	}

	res.handled, res.failed = p.processFiles(ctx, c, files)
	res.stopped = p.shouldStop(ctx)
	return res
}
