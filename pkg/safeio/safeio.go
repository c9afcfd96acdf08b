package safeio

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrTraversal is returned for paths that try to escape their base
var ErrTraversal = errors.New("path traversal detected")

// CleanUserPath cleans a user-provided path and rejects traversal attempts.
// Returns paths with forward slashes for cross-platform consistency.
func CleanUserPath(p string) (string, error) {
	c := filepath.Clean(p)
	if strings.Contains(c, "..") {
		return "", ErrTraversal
	}
	// Normalize to forward slashes for cross-platform consistency
	return filepath.ToSlash(c), nil
}

// ReadFileClean reads a user-provided path after CleanUserPath accepted it
func ReadFileClean(p string) ([]byte, error) {
	clean, err := CleanUserPath(p)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path cleaned and checked for traversal above
	return os.ReadFile(filepath.FromSlash(clean))
}

// CleanArchivePath normalizes an archive entry name ("content/images/a.png").
// Absolute names and names escaping the archive root are rejected.
func CleanArchivePath(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", ErrTraversal
	}
	c := path.Clean(name)
	if c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrTraversal
	}
	return c, nil
}

// WriteFileClean writes data to a user-provided path after CleanUserPath accepted it.
// An existing file keeps its mode; new files are created 0600.
func WriteFileClean(p string, data []byte) error {
	clean, err := CleanUserPath(p)
	if err != nil {
		return err
	}
	var mode os.FileMode = 0o600
	if st, err := os.Stat(clean); err == nil && st.Mode().Perm() != 0 {
		mode = st.Mode().Perm()
	}
	return os.WriteFile(clean, data, mode) // #nosec G306 G304 -- path cleaned above, mode preserved
}
