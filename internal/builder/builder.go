/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package builder reconstructs the content tree from a parsed content document.
// The walk follows each library's semantics where they are known and falls back
// to structural heuristics everywhere else.
package builder

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fulmenhq/caretaker/internal/content"
	"github.com/fulmenhq/caretaker/internal/semantics"
	"github.com/fulmenhq/caretaker/pkg/logger"
)

// DefaultMaxDepth bounds sub-content nesting
const DefaultMaxDepth = 64

// ErrNoParams is returned when the document carries no parameter object
var ErrNoParams = errors.New("content document has no parameters")

// Document is the parsed top-level content plus what the manifest says about it
type Document struct {
	// SubContentID of the root; generated when empty
	ID       string
	Library  content.Library
	Metadata content.Metadata
	Params   map[string]any
}

// Option configures a Builder
type Option func(*Builder)

// WithIDGenerator replaces the placeholder id generator
func WithIDGenerator(gen func() string) Option {
	return func(b *Builder) {
		if gen != nil {
			b.newID = gen
		}
	}
}

// WithMedia lets the builder fill unknown image dimensions from probed files
func WithMedia(index content.MediaIndex) Option {
	return func(b *Builder) {
		b.media = index
	}
}

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(b *Builder) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// Builder turns documents into trees. It holds no per-build state and can be reused.
type Builder struct {
	registry *semantics.Registry
	newID    func() string
	media    content.MediaIndex
	maxDepth int
}

// New creates a builder over the given semantics registry (nil means none known)
func New(registry *semantics.Registry, opts ...Option) *Builder {
	b := &Builder{
		registry: registry,
		newID:    placeholderID,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build is a shorthand for New(registry, opts...).Build(doc)
func Build(doc Document, registry *semantics.Registry, opts ...Option) (*content.Tree, error) {
	return New(registry, opts...).Build(doc)
}

func placeholderID() string {
	return "fake-" + uuid.NewString()
}

// Build walks the document and returns the finished tree
func (b *Builder) Build(doc Document) (*content.Tree, error) {
	if doc.Params == nil {
		return nil, ErrNoParams
	}

	w := &walk{Builder: b, tree: content.NewTree()}

	id := doc.ID
	if id == "" {
		id = b.newID()
	}
	root := w.tree.AddNode(content.NoNode, &content.Node{
		SubContentID: id,
		Library:      doc.Library,
		Metadata:     doc.Metadata,
		Params:       doc.Params,
	})
	w.node(root, doc.Params, "", 0)

	logger.Debug("Built content tree",
		logger.String("library", doc.Library.String()),
		logger.Int("nodes", w.tree.Len()),
		logger.Int("files", w.files))
	return w.tree, nil
}

// walk carries the state of one Build call
type walk struct {
	*Builder
	tree  *content.Tree
	files int
}

// node interprets the params of one content node
func (w *walk) node(id content.NodeID, params map[string]any, base string, depth int) {
	if depth >= w.maxDepth {
		logger.Warn("Skipping deeply nested content",
			logger.String("path", base),
			logger.Int("depth", depth))
		return
	}

	lib := w.tree.Node(id).Library
	if def, ok := w.registry.Lookup(lib); ok {
		w.fields(def.Fields, params, id, base, "", depth)
		return
	}

	if lib.Known() {
		logger.Debug("No semantics for library, using structural walk", logger.String("library", lib.String()))
	}
	w.guess(params, id, base, "", depth)
}

func (w *walk) fields(fields []semantics.Field, obj map[string]any, id content.NodeID, full, local string, depth int) {
	for _, f := range fields {
		v, ok := obj[f.Name]
		if !ok || f.Name == "" {
			continue
		}
		w.value(f, v, id, content.JoinPath(full, f.Name), content.JoinPath(local, f.Name), depth)
	}
}

// value interprets v according to the semantics field that declares it
func (w *walk) value(f semantics.Field, v any, id content.NodeID, full, local string, depth int) {
	if f.Type.IsMedia() {
		ft := content.ParseFileType(string(f.Type))
		switch x := v.(type) {
		case []any:
			// video and audio slots hold one entry per source
			for i, el := range x {
				if obj, ok := el.(map[string]any); ok {
					w.file(ft, obj, id, content.IndexPath(full, i), content.IndexPath(local, i))
				}
			}
		case map[string]any:
			w.file(ft, x, id, full, local)
		}
		return
	}

	switch f.Type {
	case semantics.TypeLibrary:
		if obj, ok := v.(map[string]any); ok {
			w.library(obj, f.LibraryOptions(), id, full, local, depth)
		}

	case semantics.TypeGroup:
		obj, isObj := v.(map[string]any)
		if len(f.Fields) == 1 && (!isObj || !hasKey(obj, f.Fields[0].Name)) {
			// Single-field groups are usually stored without the wrapping object
			w.value(f.Fields[0], v, id, full, local, depth)
			return
		}
		if isObj {
			w.fields(f.Fields, obj, id, full, local, depth)
		}

	case semantics.TypeList:
		list, ok := v.([]any)
		if !ok || f.Field == nil {
			return
		}
		for i, el := range list {
			w.value(*f.Field, el, id, content.IndexPath(full, i), content.IndexPath(local, i), depth)
		}
	}
}

// library creates a child node for a sub-content slot
// options are the libraries the declaring field allows; nil when unknown
func (w *walk) library(obj map[string]any, options []content.Library, parent content.NodeID, full, local string, depth int) {
	lib := content.ParseLibrary(stringValue(obj["library"]))
	if lib.Known() && len(options) > 0 && !allowed(options, lib) {
		logger.Debug("Sub-content library not among field options",
			logger.String("library", lib.String()),
			logger.String("path", full))
	}
	id := stringValue(obj["subContentId"])
	if id == "" {
		id = w.newID()
	}
	params, _ := obj["params"].(map[string]any)

	paramsPath := content.JoinPath(full, "params")
	child := w.tree.AddNode(parent, &content.Node{
		SubContentID:  id,
		Library:       lib,
		Metadata:      content.ParseMetadata(obj["metadata"]),
		Params:        params,
		SemanticsPath: paramsPath,
	})
	logger.Trace("Found sub-content",
		logger.String("library", lib.String()),
		logger.String("path", full),
		logger.String("local", local))

	if params != nil {
		w.node(child, params, paramsPath, depth+1)
	}
}

// allowed matches by machine name; content may be upgraded past the listed minor version
func allowed(options []content.Library, lib content.Library) bool {
	for _, o := range options {
		if o.MachineName == lib.MachineName {
			return true
		}
	}
	return false
}

// file attaches a media reference to the node
func (w *walk) file(ft content.FileType, obj map[string]any, owner content.NodeID, full, local string) {
	path := stringValue(obj["path"])
	if path == "" {
		logger.Debug("Dropping media slot without path", logger.String("path", full))
		return
	}

	f := &content.FileReference{
		ID:            w.newID(),
		Type:          ft,
		Path:          path,
		SemanticsPath: full,
		LocalPath:     local,
		MIME:          stringValue(obj["mime"]),
		Metadata:      content.ParseFileMetadata(obj["copyright"]),
	}
	if id := stringValue(obj["id"]); id != "" {
		f.ID = id
	}
	if b64 := stringValue(obj["base64"]); b64 != "" {
		f.Base64 = &b64
	}

	_, hasW := obj["width"]
	_, hasH := obj["height"]
	if (hasW || hasH) && !f.SetDimensions(obj["width"], obj["height"]) {
		logger.Debug("Dropping malformed dimensions",
			logger.String("path", full),
			logger.String("file", path))
	}
	if !f.Dimensions.Known() && ft == content.FileTypeImage && !f.IsRemote() {
		if info, ok := w.media.Lookup(path); ok && info.Dimensions.Known() {
			f.Dimensions = info.Dimensions
		}
	}

	w.tree.AddFile(owner, f)
	w.files++
}

// guess walks a value without semantics, picking up library- and media-shaped objects
func (w *walk) guess(v any, id content.NodeID, full, local string, depth int) {
	switch x := v.(type) {
	case map[string]any:
		if isLibrarySlot(x) {
			w.library(x, nil, id, full, local, depth)
			return
		}
		if ft, ok := mediaShape(x); ok {
			w.file(ft, x, id, full, local)
			return
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w.guess(x[k], id, content.JoinPath(full, k), content.JoinPath(local, k), depth)
		}

	case []any:
		for i, el := range x {
			w.guess(el, id, content.IndexPath(full, i), content.IndexPath(local, i), depth)
		}
	}
}

func isLibrarySlot(obj map[string]any) bool {
	lib, ok := obj["library"].(string)
	if !ok || strings.TrimSpace(lib) == "" {
		return false
	}
	switch obj["params"].(type) {
	case nil, map[string]any:
		return true
	}
	return false
}

var mediaFolders = []struct {
	prefix string
	kind   content.FileType
}{
	{"images/", content.FileTypeImage},
	{"videos/", content.FileTypeVideo},
	{"audios/", content.FileTypeAudio},
	{"files/", content.FileTypeFile},
}

// mediaShape recognizes {path, mime} objects and classifies them
func mediaShape(obj map[string]any) (content.FileType, bool) {
	path := stringValue(obj["path"])
	if path == "" {
		return content.FileTypeFile, false
	}

	mime := strings.ToLower(stringValue(obj["mime"]))
	if mime != "" {
		major, _, _ := strings.Cut(mime, "/")
		return content.ParseFileType(major), true
	}

	trimmed := strings.TrimPrefix(path, "./")
	for _, mf := range mediaFolders {
		if strings.HasPrefix(trimmed, mf.prefix) {
			return mf.kind, true
		}
	}
	return content.FileTypeFile, false
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func hasKey(obj map[string]any, key string) bool {
	_, ok := obj[key]
	return ok
}
