package poller

import (
	"context"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"

	"github.com/brianly1003/sfpoll/internal/domain"
)

// listFiles performs one pass over the input directory and returns the
// candidates in enumeration order. It returns false if polling was stopped
// during the pass, in which case no candidates are returned.
func (p *Poller) listFiles(ctx context.Context, c *cycle) ([]string, bool) {
	p.listing.Store(true)
	defer p.listing.Store(false)

	opts := p.active
	c.log.Debug().Str("dir", opts.InputDir).Str("trigger", c.trigger).Msg("start polling")

	// os.ReadDir returns the entries read before an error, so a failing
	// directory still yields a partial listing.
	entries, err := os.ReadDir(opts.InputDir)
	if err != nil {
		c.log.Error().Err(err).Str("dir", opts.InputDir).Int("entries", len(entries)).Msg("failed to list input directory")
	}

	var files []string
	for _, entry := range entries {
		if p.shouldStop(ctx) {
			c.log.Info().Msg("polling stopped")
			return nil, false
		}

		path := filepath.Join(opts.InputDir, entry.Name())

		isDir, err := isDirectory(entry, path)
		if err != nil {
			c.log.Error().Err(err).Str("path", path).Msg("failed to inspect entry")
			continue
		}
		if isDir {
			continue
		}

		if !p.matchesExtension(entry.Name()) {
			c.log.Debug().Str("file", entry.Name()).Strs("extensions", opts.Extensions).Msg("extension not monitored")
			continue
		}

		if p.checkFile(ctx, c, path) {
			p.blacklist.RecordSuccess(path)
			files = append(files, path)
		} else {
			strikes := p.blacklist.RecordFailure(path)
			c.log.Debug().Str("path", path).Int("strikes", strikes).Msg("file not ready")
		}

		p.expireBlacklisted(ctx, c)

		if opts.MaxFiles > 0 && len(files) == opts.MaxFiles {
			c.log.Debug().Int("max_files", opts.MaxFiles).Msg("reached maximum number of files")
			break
		}
	}

	c.log.Debug().Int("files", len(files)).Msg("finished polling")
	return files, true
}

// matchesExtension reports whether name carries one of the monitored
// extensions. The comparison is case-sensitive.
func (p *Poller) matchesExtension(name string) bool {
	if p.active.Extensions == nil {
		return true
	}
	_, ext := splitExt(name)
	return slices.Contains(p.active.Extensions, ext)
}

// checkFile runs the validator. A panicking validator counts as a failed
// check.
func (p *Poller) checkFile(ctx context.Context, c *cycle, path string) (ok bool) {
	if p.validator == nil {
		return true
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Str("path", path).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("validator panicked")
			ok = false
		}
	}()

	ok = p.validator.CheckFile(context.WithoutCancel(ctx), path, p.active.Params)
	c.log.Debug().Str("path", path).Bool("ok", ok).Msg("checked file")
	return ok
}

// expireBlacklisted removes files that failed validation BlacklistTries
// times from the input directory. Failures are logged and swallowed.
func (p *Poller) expireBlacklisted(ctx context.Context, c *cycle) {
	opts := p.active

	for _, path := range p.blacklist.SweepExpired(opts.BlacklistTries) {
		l := c.log.With().Str("path", path).Int("tries", opts.BlacklistTries).Logger()

		var err error
		if opts.DeleteInput {
			l.Info().Msg("flagged as incomplete too often, deleting")
			err = removeFile(path)
		} else {
			l.Info().Msg("flagged as incomplete too often, moving to output")
			_, err = moveToDir(path, opts.OutputDir)
		}

		rec := domain.ProcessingRecord{
			Path:    path,
			Outcome: domain.OutcomeExpired,
			Deleted: opts.DeleteInput,
		}
		if err != nil {
			l.Error().Err(err).Msg("failed to remove blacklisted file")
			rec.Error = err.Error()
		}

		p.updateStats(func(s *Stats) { s.Expired++ })
		p.record(ctx, c, rec)
	}
}

// isDirectory reports whether entry is a directory, following symlinks.
func isDirectory(entry os.DirEntry, path string) (bool, error) {
	if entry.IsDir() {
		return true, nil
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
