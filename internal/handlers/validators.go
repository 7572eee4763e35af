// Package handlers provides the built-in file validators and processors.
package handlers

import (
	"context"
	"os"
	"time"

	"github.com/brianly1003/sfpoll/internal/domain/ports"
	"github.com/rs/zerolog/log"
)

// AcceptAll is a validator that lets every file pass.
type AcceptAll struct{}

var _ ports.FileValidator = AcceptAll{}

// CheckFile always returns true.
func (AcceptAll) CheckFile(ctx context.Context, path string, params any) bool {
	return true
}

// MinAge accepts a file once it has not been modified for Age. Files that
// are still being written keep failing and are eventually blacklisted.
type MinAge struct {
	Age time.Duration

	now func() time.Time
}

var _ ports.FileValidator = (*MinAge)(nil)

// NewMinAge creates a MinAge validator.
func NewMinAge(age time.Duration) *MinAge {
	return &MinAge{Age: age, now: time.Now}
}

// CheckFile reports whether path is older than the configured age.
func (m *MinAge) CheckFile(ctx context.Context, path string, params any) bool {
	info, err := os.Stat(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("cannot stat file")
		return false
	}

	now := time.Now
	if m.now != nil {
		now = m.now
	}
	age := now().Sub(info.ModTime())
	return age >= m.Age
}
