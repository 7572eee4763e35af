package poller

import "context"

// runInterval is the fixed-interval driver. An empty cycle either ends the
// poll or, in continuous mode, waits PollWait before the next one. A
// non-empty cycle is followed immediately by the next.
func (p *Poller) runInterval(ctx context.Context) error {
	for !p.shouldStop(ctx) {
		res := p.runCycle(ctx, "interval")
		if res.stopped {
			break
		}

		if res.listed > 0 {
			continue
		}

		if !p.active.Continuous {
			p.log.Debug().Msg("no files found, exiting")
			return nil
		}

		p.log.Debug().Dur("poll_wait", p.active.PollWait).Msg("waiting before next poll")
		if !p.wait(ctx, p.active.PollWait) {
			break
		}
	}

	p.log.Info().Msg("polling stopped")
	return nil
}
