// Package domain contains domain errors and records shared across sfpoll.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrInvalidConfig   = errors.New("invalid poller configuration")
	ErrPollActive      = errors.New("poll is in progress")
	ErrNotifierRunning = errors.New("notifier is already running")
	ErrJournalClosed   = errors.New("journal is closed")
)

// Processing stages reported by ProcessingError.
const (
	StageProcess  = "process"
	StagePromote  = "promote"
	StageRelocate = "relocate"
	StageSibling  = "sibling"
)

// ConfigError describes a configuration value that failed validation.
// It matches ErrInvalidConfig with errors.Is.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// ProcessingError represents the failure of a single input file.
type ProcessingError struct {
	Path  string // Input file being handled
	Stage string // Stage that failed
	Err   error  // Underlying error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError creates a new ProcessingError.
func NewProcessingError(path, stage string, err error) *ProcessingError {
	return &ProcessingError{
		Path:  path,
		Stage: stage,
		Err:   err,
	}
}
