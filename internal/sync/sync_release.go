//go:build !deadlock

// Package sync provides the mutex types used by the poller.
// Release builds use the standard sync package; building with
// -tags deadlock swaps in go-deadlock so a stuck drain cycle is reported.
package sync

import "sync"

// Mutex is the standard sync.Mutex.
type Mutex = sync.Mutex

// RWMutex is the standard sync.RWMutex.
type RWMutex = sync.RWMutex

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Once is the standard sync.Once.
type Once = sync.Once
