package poller

import (
	"context"
	"fmt"
	"time"
)

// Drain triggers reported in logs.
const (
	triggerInitial  = "initial"
	triggerEvent    = "event"
	triggerFallback = "fallback"
)

// runWatchdog is the event-driven driver. File-creation events and the
// fallback ticker feed a single worker loop, so drains never overlap. A
// trigger arriving while a drain is running is coalesced into one pending
// drain.
func (p *Poller) runWatchdog(ctx context.Context) error {
	pending := make(chan struct{}, 1)
	onCreate := func(path string) {
		p.log.Debug().Str("path", path).Msg("file created")
		select {
		case pending <- struct{}{}:
		default:
		}
	}

	if err := p.notifier.Start(ctx, p.active.InputDir, onCreate); err != nil {
		return fmt.Errorf("start directory notifier: %w", err)
	}
	defer func() {
		if err := p.notifier.Stop(); err != nil {
			p.log.Warn().Err(err).Msg("failed to stop directory notifier")
		}
	}()

	ticker := time.NewTicker(p.active.WatchdogCheckInterval)
	defer ticker.Stop()

	p.drain(ctx, triggerInitial)

	for !p.shouldStop(ctx) {
		select {
		case <-ctx.Done():
		case <-pending:
			p.drain(ctx, triggerEvent)
		case <-ticker.C:
			p.log.Debug().Msg("fallback sweep")
			p.drain(ctx, triggerFallback)
		}
	}

	p.log.Info().Msg("polling stopped")
	return nil
}

// drain runs cycles until the input directory looks drained: the listing
// came back empty or shorter than MaxFiles. An unbounded listing always
// drains in one cycle.
//
// A full listing in which every file failed processing also ends the drain.
// This guard is an addition to the emptiness test: those files stay in the
// input directory and would otherwise be relisted in a hot loop. They are
// retried on the next event or fallback sweep.
func (p *Poller) drain(ctx context.Context, trigger string) {
	for !p.shouldStop(ctx) {
		res := p.runCycle(ctx, trigger)
		if res.stopped {
			return
		}

		maxFiles := p.active.MaxFiles
		if res.listed == 0 || maxFiles <= 0 || res.listed < maxFiles {
			return
		}
		if res.handled == 0 {
			p.log.Debug().Int("failed", res.failed).Msg("no file handled, ending drain")
			return
		}
	}
}
