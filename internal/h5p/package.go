/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package h5p reads H5P packages, zipped or extracted, into the inputs the
// tree builder and the analyzers need.
package h5p

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/fulmenhq/caretaker/internal/builder"
	"github.com/fulmenhq/caretaker/internal/content"
	"github.com/fulmenhq/caretaker/internal/schema"
	"github.com/fulmenhq/caretaker/internal/semantics"
	"github.com/fulmenhq/caretaker/pkg/logger"
	"github.com/fulmenhq/caretaker/pkg/safeio"
)

// ErrInvalidPackage marks packages that cannot be inspected at all
var ErrInvalidPackage = errors.New("invalid h5p package")

const (
	manifestFile = "h5p.json"
	contentFile  = "content/content.json"
	contentDir   = "content/"

	// DefaultMaxJSONSize caps h5p.json, content.json and semantics files
	DefaultMaxJSONSize = 32 << 20
	// DefaultProbeGlob selects the media files whose pixel size is probed
	DefaultProbeGlob = "**/*.{png,jpg,jpeg,gif,PNG,JPG,JPEG,GIF}"
)

// Package is everything read from one H5P package
type Package struct {
	Path      string
	Digest    string
	Manifest  *Manifest
	Params    map[string]any
	Semantics *semantics.Registry
	Media     content.MediaIndex
}

// Option configures Open
type Option func(*options)

type options struct {
	maxJSONSize int64
	probeGlob   string
}

// WithMaxJSONSize overrides DefaultMaxJSONSize
func WithMaxJSONSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxJSONSize = n
		}
	}
}

// WithProbeGlob overrides DefaultProbeGlob; an empty pattern disables probing
func WithProbeGlob(pattern string) Option {
	return func(o *options) { o.probeGlob = pattern }
}

// Open reads a .h5p archive or an extracted package directory
func Open(ctx context.Context, p string, opts ...Option) (*Package, error) {
	o := options{maxJSONSize: DefaultMaxJSONSize, probeGlob: DefaultProbeGlob}
	for _, opt := range opts {
		opt(&o)
	}

	clean, err := safeio.CleanUserPath(p)
	if err != nil {
		return nil, fmt.Errorf("package path %s: %w", p, err)
	}
	st, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("opening package: %w", err)
	}

	var src *source
	digest := ""
	if st.IsDir() {
		src, err = openDir(clean)
	} else {
		src, err = openZip(clean)
		if err == nil {
			digest, err = fileDigest(clean)
		}
	}
	if err != nil {
		if src != nil {
			_ = src.Close()
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidPackage, err)
	}
	defer func() { _ = src.Close() }()

	if digest == "" {
		if digest, err = entriesDigest(src); err != nil {
			return nil, fmt.Errorf("hashing package: %w", err)
		}
	}

	pkg := &Package{Path: p, Digest: digest}
	if pkg.Manifest, err = readManifest(src, o.maxJSONSize); err != nil {
		return nil, err
	}
	if pkg.Params, err = readContent(src, o.maxJSONSize); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pkg.Semantics, err = readSemantics(ctx, src, o.maxJSONSize); err != nil {
		return nil, err
	}
	if pkg.Media, err = indexMedia(ctx, src, o.probeGlob); err != nil {
		return nil, err
	}

	logger.Debug(fmt.Sprintf("Opened %s: %d libraries with semantics, %d media files", p, pkg.Semantics.Len(), len(pkg.Media)),
		logger.String("main_library", pkg.Manifest.MainLibrary))
	for _, lib := range pkg.MissingSemantics() {
		logger.Warn("Declared library has no semantics; its content is walked by shape",
			logger.String("library", lib.String()))
	}
	return pkg, nil
}

// MissingSemantics lists declared dependencies the package ships no semantics for
func (p *Package) MissingSemantics() []content.Library {
	var missing []content.Library
	for _, lib := range p.Manifest.Libraries() {
		if _, ok := p.Semantics.Lookup(lib); !ok {
			missing = append(missing, lib)
		}
	}
	return missing
}

// Document returns the builder input for the package's top-level content
func (p *Package) Document() builder.Document {
	return builder.Document{
		Library:  p.Manifest.MainLibraryVersion(),
		Metadata: p.Manifest.Metadata,
		Params:   p.Params,
	}
}

func readManifest(src *source, limit int64) (*Manifest, error) {
	data, ok, err := src.read(manifestFile, limit)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPackage, manifestFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrInvalidPackage, manifestFile, err)
	}

	res, err := schema.ValidateJSON(data, schema.ManifestSchema)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPackage, manifestFile, err)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s does not match schema: %w", ErrInvalidPackage, manifestFile, err)
	}

	m, err := parseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidPackage, manifestFile, err)
	}
	return m, nil
}

func readContent(src *source, limit int64) (map[string]any, error) {
	data, ok, err := src.read(contentFile, limit)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPackage, contentFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrInvalidPackage, contentFile, err)
	}

	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidPackage, contentFile, err)
	}
	if params == nil {
		return nil, fmt.Errorf("%w: %s is not an object", ErrInvalidPackage, contentFile)
	}
	return params, nil
}

// readSemantics loads every top-level library folder carrying a semantics.json.
// Broken library files are logged and skipped; the builder treats those
// libraries as having unknown semantics.
func readSemantics(ctx context.Context, src *source, limit int64) (*semantics.Registry, error) {
	reg := semantics.NewRegistry()
	for _, name := range src.names() {
		dir, file := path.Split(name)
		if file != "semantics.json" || strings.Count(dir, "/") != 1 || dir == contentDir {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir = strings.TrimSuffix(dir, "/")

		lib, ok := libraryIdentity(src, dir, limit)
		if !ok {
			logger.Warn(fmt.Sprintf("Skipping library folder %s: cannot determine library version", dir))
			continue
		}

		data, _, err := src.read(name, limit)
		if err != nil {
			logger.Warn(fmt.Sprintf("Skipping semantics of %s", lib), logger.Err(err))
			continue
		}
		fields, err := semantics.Parse(data)
		if err != nil {
			logger.Warn(fmt.Sprintf("Skipping semantics of %s", lib), logger.Err(err))
			continue
		}
		reg.Add(lib, fields)
		logger.Trace(fmt.Sprintf("Loaded semantics for %s (%d fields)", lib, len(fields)))
	}
	return reg, nil
}

// libraryIdentity prefers library.json and falls back to the folder name
func libraryIdentity(src *source, dir string, limit int64) (content.Library, bool) {
	if data, ok, err := src.read(dir+"/library.json", limit); ok && err == nil {
		var d libraryDescriptor
		if json.Unmarshal(data, &d) == nil && d.MachineName != "" {
			return content.Library{MachineName: d.MachineName, MajorVersion: int(d.MajorVersion), MinorVersion: int(d.MinorVersion)}, true
		}
	}
	return libraryFromDir(dir)
}

func fileDigest(p string) (string, error) {
	// #nosec G304 -- p was cleaned by the caller
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return "blake3:" + hex.EncodeToString(h.Sum(nil)), nil
}

// entriesDigest hashes an extracted package as the sorted sequence of name and content
func entriesDigest(src *source) (string, error) {
	h := blake3.New()
	for _, name := range src.names() {
		if _, err := io.WriteString(h, name+"\x00"); err != nil {
			return "", err
		}
		rc, err := src.entries[name].open()
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, rc)
		_ = rc.Close()
		if err != nil {
			return "", err
		}
	}
	return "blake3:" + hex.EncodeToString(h.Sum(nil)), nil
}
