/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package h5p

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"fortio.org/safecast"
	"github.com/klauspost/compress/zip"

	"github.com/fulmenhq/caretaker/pkg/safeio"
)

// entry is one regular file of a package, zipped or extracted
type entry struct {
	size int64
	open func() (io.ReadCloser, error)
}

// source is the flat file listing of a package keyed by cleaned slash paths
type source struct {
	entries map[string]entry
	closer  io.Closer
}

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *source) names() []string {
	out := make([]string, 0, len(s.entries))
	for name := range s.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// read returns the entry's bytes, refusing anything larger than limit
func (s *source) read(name string, limit int64) ([]byte, bool, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, false, nil
	}
	if limit > 0 && e.size > limit {
		return nil, true, fmt.Errorf("%s is %d bytes, limit is %d", name, e.size, limit)
	}
	rc, err := e.open()
	if err != nil {
		return nil, true, err
	}
	defer func() { _ = rc.Close() }()

	r := io.Reader(rc)
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, true, err
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, true, fmt.Errorf("%s exceeds %d bytes", name, limit)
	}
	return data, true, nil
}

func openZip(path string) (*source, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		// ErrInsecurePath comes with an open reader
		if zr != nil {
			_ = zr.Close()
		}
		return nil, err
	}

	src := &source{entries: make(map[string]entry, len(zr.File)), closer: zr}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, err := safeio.CleanArchivePath(f.Name)
		if err != nil {
			_ = zr.Close()
			return nil, fmt.Errorf("archive entry %q: %w", f.Name, err)
		}
		size, err := safecast.Conv[int64](f.UncompressedSize64)
		if err != nil {
			_ = zr.Close()
			return nil, fmt.Errorf("archive entry %q: %w", f.Name, err)
		}
		src.entries[name] = entry{size: size, open: f.Open}
	}
	return src, nil
}

func openDir(root string) (*source, error) {
	src := &source{entries: make(map[string]entry)}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		full := p
		src.entries[filepath.ToSlash(rel)] = entry{
			size: info.Size(),
			open: func() (io.ReadCloser, error) {
				// #nosec G304 -- path comes from walking the package directory
				return os.Open(full)
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}
