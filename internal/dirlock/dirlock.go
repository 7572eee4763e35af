// Package dirlock guarantees that a single sfpoll process owns an input
// directory at a time.
package dirlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brianly1003/sfpoll/internal/pathutil"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
)

// ErrLocked is returned when another process already polls the directory.
var ErrLocked = errors.New("input directory is locked by another process")

// Lock is an acquired advisory lock on an input directory.
type Lock struct {
	dir  string
	path string
	lock *flock.Flock
}

// LockPath returns the lock file used for inputDir inside lockDir.
func LockPath(lockDir, inputDir string) string {
	abs, err := filepath.Abs(inputDir)
	if err != nil {
		abs = inputDir
	}
	return filepath.Join(lockDir, pathutil.EncodePath(abs)+".lock")
}

// Acquire takes the lock for inputDir without blocking. lockDir is created
// if needed.
func Acquire(lockDir, inputDir string) (*Lock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := LockPath(lockDir, inputDir)
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, inputDir)
	}

	log.Debug().Str("dir", inputDir).Str("lock", path).Msg("input directory locked")
	return &Lock{dir: inputDir, path: path, lock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks the directory. The lock file itself is left in place.
func (l *Lock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	log.Debug().Str("dir", l.dir).Msg("input directory unlocked")
	return nil
}
