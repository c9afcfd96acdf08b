// Package ignore suppresses findings for package files listed in .caretakerignore,
// using gitignore pattern syntax from go-git
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the ignore file looked up in the working directory and in the caretaker home
const FileName = ".caretakerignore"

// Matcher matches content-relative file paths such as "images/logo.png"
type Matcher struct {
	matcher  gitignore.Matcher
	patterns int
}

// New builds a matcher from gitignore-style pattern lines.
// Later lines win, so "!images/keep.png" re-includes a file.
func New(lines []string) *Matcher {
	var patterns []gitignore.Pattern
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return &Matcher{matcher: gitignore.NewMatcher(patterns), patterns: len(patterns)}
}

// Load layers the ignore files found in the given directories, in order.
// Directories without an ignore file are skipped.
func Load(dirs ...string) (*Matcher, error) {
	var lines []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		found, err := readPatterns(osfs.New(dir), FileName)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Join(dir, FileName), err)
		}
		lines = append(lines, found...)
	}
	return New(lines), nil
}

// LoadFile reads one explicit ignore file
func LoadFile(path string) (*Matcher, error) {
	found, err := readPatterns(osfs.New(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", path, err)
	}
	return New(found), nil
}

func readPatterns(fsys billy.Filesystem, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fs.ErrNotExist
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// Empty reports whether the matcher has no patterns
func (m *Matcher) Empty() bool {
	return m == nil || m.patterns == 0
}

// Match reports whether a content-relative path is ignored
func (m *Matcher) Match(path string) bool {
	if m.Empty() {
		return false
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, false)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	path = strings.TrimPrefix(filepath.ToSlash(path), "/")
	parts := strings.Split(path, "/")

	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
