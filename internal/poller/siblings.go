package poller

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// siblingGlob builds the glob for pattern relative to inputDir, with the
// name placeholder replaced by the stem of path.
func siblingGlob(inputDir, pattern, path string) string {
	stem, _ := splitExt(filepath.Base(path))
	return filepath.Join(inputDir, strings.ReplaceAll(pattern, NamePlaceholder, escapeGlob(stem)))
}

// findSiblings expands every sibling pattern for path and returns the
// matching regular files.
func (p *Poller) findSiblings(path string) ([]string, error) {
	var siblings []string
	for _, pattern := range p.active.OtherInputFiles {
		matches, err := filepath.Glob(siblingGlob(p.active.InputDir, pattern, path))
		if err != nil {
			return siblings, fmt.Errorf("expand %q: %w", pattern, err)
		}
		for _, m := range matches {
			if m == path {
				continue
			}
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			siblings = append(siblings, m)
		}
	}
	return siblings, nil
}

// escapeGlob quotes the glob metacharacters in a literal file name.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[\`) {
		return s
	}

	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			if runtime.GOOS == "windows" {
				b.WriteByte('[')
				b.WriteRune(r)
				b.WriteByte(']')
				continue
			}
			b.WriteByte('\\')
		case '\\':
			if runtime.GOOS != "windows" {
				b.WriteByte('\\')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
