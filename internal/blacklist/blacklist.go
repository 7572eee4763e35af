// Package blacklist tracks files that repeatedly fail validation.
//
// A Tracker is a plain strike ledger: it never touches the filesystem. The
// caller decides what to do with the paths returned by SweepExpired.
// A Tracker is not safe for concurrent use.
package blacklist

import "sort"

// Tracker maps absolute file paths to their validation strike count.
type Tracker struct {
	strikes map[string]int
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{strikes: make(map[string]int)}
}

// RecordFailure adds a strike for path and returns the new count.
func (t *Tracker) RecordFailure(path string) int {
	t.strikes[path]++
	return t.strikes[path]
}

// RecordSuccess forgets any strikes recorded for path.
func (t *Tracker) RecordSuccess(path string) {
	delete(t.strikes, path)
}

// SweepExpired removes and returns every path whose strike count reached
// threshold. The result is sorted.
func (t *Tracker) SweepExpired(threshold int) []string {
	if len(t.strikes) == 0 {
		return nil
	}

	var expired []string
	for path, count := range t.strikes {
		if count >= threshold {
			expired = append(expired, path)
		}
	}
	for _, path := range expired {
		delete(t.strikes, path)
	}

	sort.Strings(expired)
	return expired
}

// Count returns the strikes recorded for path.
func (t *Tracker) Count(path string) int {
	return t.strikes[path]
}

// Len returns the number of tracked paths.
func (t *Tracker) Len() int {
	return len(t.strikes)
}

// Reset forgets all strikes.
func (t *Tracker) Reset() {
	t.strikes = make(map[string]int)
}
