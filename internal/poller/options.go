package poller

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianly1003/sfpoll/internal/domain"
)

// NamePlaceholder is replaced in sibling patterns by the extension-stripped
// name of the file being processed.
const NamePlaceholder = "{NAME}"

// Options configures a Poller. It is copied at the start of every Poll.
type Options struct {
	// InputDir is the directory polled for files.
	InputDir string
	// OutputDir receives processed files (unless deleted) and promoted outputs.
	OutputDir string
	// TmpDir, when set, is where the processor writes before outputs are
	// moved into OutputDir.
	TmpDir string

	DeleteInput           bool
	DeleteOtherInputFiles bool

	// Continuous keeps polling after a cycle finds nothing.
	Continuous bool
	// MaxFiles caps the candidates per cycle; zero or negative is unbounded.
	MaxFiles int
	// Extensions restricts candidates to these lower-case, dot-prefixed
	// suffixes. nil accepts every file.
	Extensions []string
	// OtherInputFiles are glob patterns containing NamePlaceholder that
	// locate sibling files of a processed input.
	OtherInputFiles []string

	// BlacklistTries is the number of failed checks after which a file is
	// moved out of (or deleted from) the input directory.
	BlacklistTries int
	// PollWait is the pause after an empty fixed-interval cycle.
	PollWait time.Duration

	// UseWatchdog switches to filesystem-event scheduling; requires Continuous.
	UseWatchdog bool
	// WatchdogCheckInterval is the fallback sweep period in event mode.
	WatchdogCheckInterval time.Duration

	Verbose         bool
	Progress        bool
	OutputTimestamp bool
	OutputNumFiles  bool

	// Params is passed unchanged to the validator and processor.
	Params any
}

// DefaultOptions returns the options used when a field is not configured.
func DefaultOptions() Options {
	return Options{
		MaxFiles:              -1,
		BlacklistTries:        3,
		PollWait:              time.Second,
		WatchdogCheckInterval: 10 * time.Second,
		Progress:              true,
		OutputTimestamp:       true,
	}
}

// Validate checks the options without modifying them.
func (o Options) Validate() error {
	_, err := o.normalize()
	return err
}

// normalize validates the options and returns a copy with absolute paths.
func (o Options) normalize() (Options, error) {
	var err error

	if o.InputDir, err = checkDir("input_dir", o.InputDir, true); err != nil {
		return o, err
	}
	if o.OutputDir, err = checkDir("output_dir", o.OutputDir, true); err != nil {
		return o, err
	}
	if o.TmpDir, err = checkDir("tmp_dir", o.TmpDir, false); err != nil {
		return o, err
	}

	if o.Extensions != nil {
		if len(o.Extensions) == 0 {
			return o, domain.NewConfigError("extensions", "empty list provided")
		}
		for _, ext := range o.Extensions {
			if !strings.HasPrefix(ext, ".") {
				return o, domain.NewConfigError("extensions", "all extensions must start with '.' (%v)", o.Extensions)
			}
			if ext != strings.ToLower(ext) {
				return o, domain.NewConfigError("extensions", "extensions must be lower case (%v)", o.Extensions)
			}
		}
	}

	for _, pattern := range o.OtherInputFiles {
		if !strings.Contains(pattern, NamePlaceholder) {
			return o, domain.NewConfigError("other_input_files", "pattern %q lacks the %s placeholder", pattern, NamePlaceholder)
		}
		if _, err := filepath.Match(strings.ReplaceAll(pattern, NamePlaceholder, "x"), ""); err != nil {
			return o, domain.NewConfigError("other_input_files", "invalid glob %q: %v", pattern, err)
		}
	}

	if o.BlacklistTries < 1 {
		return o, domain.NewConfigError("blacklist_tries", "must be at least 1, got %d", o.BlacklistTries)
	}
	if o.PollWait < 0 {
		return o, domain.NewConfigError("poll_wait", "cannot be negative")
	}

	if o.UseWatchdog {
		if !o.Continuous {
			return o, domain.NewConfigError("use_watchdog", "watchdog mode requires continuous mode")
		}
		if o.WatchdogCheckInterval <= 0 {
			return o, domain.NewConfigError("watchdog_check_interval", "must be positive")
		}
	}

	return o, nil
}

// checkDir verifies that path exists and is a directory and returns it as an
// absolute path. An empty optional path is returned unchanged.
func checkDir(field, path string, required bool) (string, error) {
	if path == "" {
		if required {
			return "", domain.NewConfigError(field, "no directory provided")
		}
		return "", nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.NewConfigError(field, "directory does not exist: %s", path)
		}
		return "", domain.NewConfigError(field, "unable to access %s: %v", path, err)
	}
	if !info.IsDir() {
		return "", domain.NewConfigError(field, "does not point to a directory: %s", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", domain.NewConfigError(field, "unable to resolve %s: %v", path, err)
	}
	return abs, nil
}

// splitExt splits name into stem and extension. Leading dots belong to the
// stem, so ".profile" has no extension.
func splitExt(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name, ""
	}
	return name[:i], name[i:]
}
