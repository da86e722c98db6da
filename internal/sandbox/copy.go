package sandbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/floyd-ai/floyd/internal/consts"
)

// DefaultExcludes are the directory entries skipped when cloning a project
// tree. They cover dependency trees, VCS metadata, and build output that would
// make clones slow and pointless to replay.
var DefaultExcludes = []string{
	"node_modules", ".git", ".floyd", "dist", "build", ".next", ".cache",
	"__pycache__", ".pytest_cache", "venv", ".venv", "target", "vendor",
}

// excludeMatcher matches directory entry names against a pattern list.
// Patterns containing '*' are compiled to wildcard regexes, everything else is
// an exact name match.
type excludeMatcher struct {
	exact     map[string]struct{}
	wildcards []*regexp.Regexp
}

func newExcludeMatcher(patterns []string) (*excludeMatcher, error) {
	m := &excludeMatcher{exact: make(map[string]struct{})}
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if !strings.Contains(pattern, "*") {
			m.exact[pattern] = struct{}{}
			continue
		}
		expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		m.wildcards = append(m.wildcards, re)
	}
	return m, nil
}

func (m *excludeMatcher) matches(name string) bool {
	if _, ok := m.exact[name]; ok {
		return true
	}
	for _, re := range m.wildcards {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// copyTree recursively copies src into dst, skipping excluded entries.
func copyTree(src, dst string, excludes *excludeMatcher) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", src, err)
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dst, err)
	}

	for _, entry := range entries {
		if excludes.matches(entry.Name()) {
			continue
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath, excludes); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			// Symlinks and special files are not cloned; the sandbox only
			// replays regular file content.
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies a single regular file, preserving its mode.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", dst, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	buf := make([]byte, consts.CopyBufferSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
