// Package pathutil provides cross-platform path and shell helpers for sfpoll.
package pathutil

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// EncodePath converts a filesystem path to a flat string safe for use as a
// file name.
//
// Examples:
//
//	Unix:    /data/incoming/scans  → -data-incoming-scans
//	Windows: C:\data\incoming      → C:-data-incoming
func EncodePath(path string) string {
	// ToSlash makes the replace below identical on every platform.
	encoded := strings.ReplaceAll(filepath.ToSlash(filepath.Clean(path)), "/", "-")
	return strings.ReplaceAll(encoded, ":", "")
}

// ShellCommandContext returns an *exec.Cmd that runs command through the
// platform's default shell and is killed when ctx is done.
//
//	Unix/macOS: sh -c "<command>"
//	Windows:    cmd.exe /C "<command>"
func ShellCommandContext(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd.exe", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// ShellQuote quotes s for safe interpolation into a ShellCommandContext
// command line.
func ShellQuote(s string) string {
	if runtime.GOOS == "windows" {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
