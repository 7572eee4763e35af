//go:build deadlock

// Package sync provides the mutex types used by the poller.
// This variant wraps go-deadlock for lock-order and timeout detection.
package sync

import (
	"os"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex is a go-deadlock mutex.
type Mutex = deadlock.Mutex

// RWMutex is a go-deadlock reader/writer mutex.
type RWMutex = deadlock.RWMutex

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Once is the standard sync.Once.
type Once = sync.Once

func init() {
	// The cycle lock is held for the whole of a processor call.
	deadlock.Opts.DeadlockTimeout = 5 * time.Minute

	if os.Getenv("SFPOLL_NO_DEADLOCK_DETECT") != "" {
		deadlock.Opts.Disable = true
		return
	}

	deadlock.Opts.PrintAllCurrentGoroutines = true

	println("[DEADLOCK DETECTION ENABLED] Using go-deadlock for mutex operations")
}
