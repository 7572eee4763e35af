package poller

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/brianly1003/sfpoll/internal/domain"
)

// processFiles handles paths strictly in order. A failing file is logged and
// left in place; the batch continues with the next file. A stop request
// aborts the remainder of the batch before the next file starts.
func (p *Poller) processFiles(ctx context.Context, c *cycle, paths []string) (handled, failed int) {
	p.processing.Store(true)
	defer p.processing.Store(false)

	for _, path := range paths {
		if p.shouldStop(ctx) {
			c.log.Info().Int("remaining", len(paths)-handled-failed).Msg("polling stopped")
			return handled, failed
		}

		start := time.Now()
		p.progressEvent(c.log).Str("path", path).Msg("start processing")

		outputs, err := p.processFile(ctx, c, path)
		took := time.Since(start)

		rec := domain.ProcessingRecord{
			Path:     path,
			Outcome:  domain.OutcomeProcessed,
			Outputs:  outputs,
			Deleted:  p.active.DeleteInput,
			Duration: took,
		}
		if err != nil {
			failed++
			rec.Outcome = domain.OutcomeFailed
			rec.Deleted = false
			rec.Error = err.Error()
			c.log.Error().Err(err).Str("path", path).Msg("failed processing")
			p.updateStats(func(s *Stats) { s.Failed++ })
		} else {
			handled++
			p.updateStats(func(s *Stats) { s.Processed++ })
		}

		p.progressEvent(c.log).
			Str("path", path).
			Int64("took_ms", took.Milliseconds()).
			Int("outputs", len(outputs)).
			Msg("finished processing")
		p.record(ctx, c, rec)
	}

	return handled, failed
}

// processFile runs the processor for one input, promotes its outputs and
// disposes of the input and its siblings. It returns the final output paths.
func (p *Poller) processFile(ctx context.Context, c *cycle, path string) ([]string, error) {
	opts := p.active
	var outputs []string

	if p.processor != nil {
		if opts.TmpDir != "" {
			produced, err := p.callProcessor(ctx, c, path, opts.TmpDir)
			if err != nil {
				return nil, domain.NewProcessingError(path, domain.StageProcess, err)
			}
			for _, out := range produced {
				c.log.Debug().Str("output", out).Str("dir", opts.OutputDir).Msg("moving processed file")
				dst, err := moveToDir(out, opts.OutputDir)
				if err != nil {
					return outputs, domain.NewProcessingError(path, domain.StagePromote, err)
				}
				outputs = append(outputs, dst)
			}
		} else {
			produced, err := p.callProcessor(ctx, c, path, opts.OutputDir)
			if err != nil {
				return nil, domain.NewProcessingError(path, domain.StageProcess, err)
			}
			outputs = produced
		}
	}

	if opts.DeleteInput {
		c.log.Debug().Str("path", path).Msg("deleting input")
	} else {
		c.log.Debug().Str("path", path).Str("dir", opts.OutputDir).Msg("moving input")
	}
	if err := dispose(path, opts.OutputDir, opts.DeleteInput); err != nil {
		return outputs, domain.NewProcessingError(path, domain.StageRelocate, err)
	}

	if len(opts.OtherInputFiles) == 0 {
		return outputs, nil
	}

	siblings, err := p.findSiblings(path)
	if err != nil {
		return outputs, domain.NewProcessingError(path, domain.StageSibling, err)
	}
	for _, sibling := range siblings {
		if opts.DeleteOtherInputFiles {
			c.log.Debug().Str("path", sibling).Msg("deleting other input")
		} else {
			c.log.Debug().Str("path", sibling).Str("dir", opts.OutputDir).Msg("moving other input")
		}
		if err := dispose(sibling, opts.OutputDir, opts.DeleteOtherInputFiles); err != nil {
			return outputs, domain.NewProcessingError(path, domain.StageSibling, err)
		}
	}

	return outputs, nil
}

// callProcessor invokes the processor, turning a panic into an error.
// Relative output paths are resolved against dir. The processor does not
// observe stop requests: work on a started file always runs to completion.
func (p *Poller) callProcessor(ctx context.Context, c *cycle, path, dir string) (produced []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Str("path", path).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("processor panicked")
			produced = nil
			err = fmt.Errorf("processor panicked: %v", r)
		}
	}()

	outputs, err := p.processor.ProcessFile(context.WithoutCancel(ctx), path, dir, p.active.Params)
	if err != nil || len(outputs) == 0 {
		return nil, err
	}

	produced = make([]string, 0, len(outputs))
	for _, out := range outputs {
		if !filepath.IsAbs(out) {
			out = filepath.Join(dir, out)
		}
		produced = append(produced, out)
	}
	return produced, nil
}
