package config

import (
	"os"
	"path/filepath"
)

// Built-in validator types.
const (
	ValidatorAccept = "accept"
	ValidatorMinAge = "min_age"
)

// Built-in processor types.
const (
	ProcessorNone       = "none"
	ProcessorDoneMarker = "done_marker"
	ProcessorCommand    = "command"
)

// Default values shared by setDefaults and the CLI.
const (
	DefaultMaxFiles           = -1
	DefaultBlacklistTries     = 3
	DefaultPollWaitMS         = 1000
	DefaultWatchdogIntervalMS = 10000
	DefaultMinAgeMS           = 2000
	DefaultStatusPort         = 8787
	DefaultJournalFile        = "journal.db"

	// MaxDebounceMS bounds poller.watchdog_debounce_ms.
	MaxDebounceMS = 10000
)

// DefaultLockDir returns the directory holding input directory lock files.
func DefaultLockDir() string {
	return filepath.Join(os.TempDir(), "sfpoll")
}
