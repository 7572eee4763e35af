package handlers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianly1003/sfpoll/internal/domain/ports"
	"github.com/brianly1003/sfpoll/internal/pathutil"
	"github.com/rs/zerolog/log"
)

// Placeholders expanded in Command templates.
const (
	InputPlaceholder     = "{INPUT}"
	OutputDirPlaceholder = "{OUTPUT_DIR}"
)

// DoneMarker writes "<name>.done" containing the input path into the output
// directory. It is useful for testing pipelines end to end.
type DoneMarker struct{}

var _ ports.FileProcessor = DoneMarker{}

// ProcessFile writes the marker and returns its path.
func (DoneMarker) ProcessFile(ctx context.Context, path, outputDir string, params any) ([]string, error) {
	out := filepath.Join(outputDir, filepath.Base(path)+".done")
	if err := os.WriteFile(out, []byte(path), 0o644); err != nil {
		return nil, fmt.Errorf("write marker: %w", err)
	}
	return []string{out}, nil
}

// Command runs a shell command per file. The template may reference
// {INPUT} and {OUTPUT_DIR}; both are shell-quoted. Every non-empty line the
// command prints on stdout is reported as a produced file, relative paths
// being resolved against the output directory by the poller.
type Command struct {
	Template string
	Timeout  time.Duration
}

var _ ports.FileProcessor = (*Command)(nil)

// NewCommand creates a Command processor. A zero timeout disables it.
func NewCommand(template string, timeout time.Duration) *Command {
	return &Command{Template: template, Timeout: timeout}
}

// Expand returns the command line for one input file.
func (c *Command) Expand(path, outputDir string) string {
	r := strings.NewReplacer(
		InputPlaceholder, pathutil.ShellQuote(path),
		OutputDirPlaceholder, pathutil.ShellQuote(outputDir),
	)
	return r.Replace(c.Template)
}

// ProcessFile runs the command and collects its reported outputs.
func (c *Command) ProcessFile(ctx context.Context, path, outputDir string, params any) ([]string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	line := c.Expand(path, outputDir)
	cmd := pathutil.ShellCommandContext(ctx, line)
	cmd.Dir = outputDir
	// Children of the shell may keep stdout open after it is killed.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	log.Debug().
		Str("command", line).
		Dur("took", time.Since(start)).
		Msg("processor command finished")

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("command timed out after %s", c.Timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("command failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("command failed: %w", err)
	}

	var outputs []string
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		if out := strings.TrimSpace(scanner.Text()); out != "" {
			outputs = append(outputs, out)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read command output: %w", err)
	}
	return outputs, nil
}
