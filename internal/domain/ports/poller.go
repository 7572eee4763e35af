// Package ports defines the interfaces sfpoll consumes from its collaborators.
package ports

import (
	"context"

	"github.com/brianly1003/sfpoll/internal/domain"
)

// FileValidator decides whether a file is ready to be processed.
type FileValidator interface {
	// CheckFile returns true when path can be handed to the processor.
	// params is the caller's opaque value, passed through unchanged.
	CheckFile(ctx context.Context, path string, params any) bool
}

// FileProcessor performs the work for a single input file.
type FileProcessor interface {
	// ProcessFile writes any generated files under outputDir and returns
	// their absolute paths. It must not move or delete path itself.
	ProcessFile(ctx context.Context, path, outputDir string, params any) ([]string, error)
}

// ProcessingRecorder persists the outcome of each handled file.
type ProcessingRecorder interface {
	Record(ctx context.Context, rec domain.ProcessingRecord) error
}

// ValidatorFunc adapts a function to FileValidator.
type ValidatorFunc func(ctx context.Context, path string, params any) bool

// CheckFile calls f.
func (f ValidatorFunc) CheckFile(ctx context.Context, path string, params any) bool {
	return f(ctx, path, params)
}

// ProcessorFunc adapts a function to FileProcessor.
type ProcessorFunc func(ctx context.Context, path, outputDir string, params any) ([]string, error)

// ProcessFile calls f.
func (f ProcessorFunc) ProcessFile(ctx context.Context, path, outputDir string, params any) ([]string, error) {
	return f(ctx, path, outputDir, params)
}
