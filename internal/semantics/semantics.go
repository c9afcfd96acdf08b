/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package semantics models the per-library field definitions (semantics.json)
// that describe where sub-content and media live inside a content document.
package semantics

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/tidwall/jsonc"

	"github.com/fulmenhq/caretaker/internal/content"
)

// FieldType is the declared type of a semantics field
type FieldType string

const (
	TypeLibrary FieldType = "library"
	TypeImage   FieldType = "image"
	TypeVideo   FieldType = "video"
	TypeAudio   FieldType = "audio"
	TypeFile    FieldType = "file"
	TypeGroup   FieldType = "group"
	TypeList    FieldType = "list"
	TypeText    FieldType = "text"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeSelect  FieldType = "select"
)

// IsMedia reports whether the field holds file references
func (t FieldType) IsMedia() bool {
	switch t {
	case TypeImage, TypeVideo, TypeAudio, TypeFile:
		return true
	}
	return false
}

// Field is one entry of a semantics definition
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Label    string    `json:"label,omitempty"`
	Optional bool      `json:"optional,omitempty"`
	Fields   []Field   `json:"fields,omitempty"`
	Field    *Field    `json:"field,omitempty"`
	// Options lists allowed libraries for library fields; select fields use objects here.
	Options []any `json:"options,omitempty"`
}

// LibraryOptions returns the versioned machine names a library field accepts
func (f Field) LibraryOptions() []content.Library {
	var out []content.Library
	for _, o := range f.Options {
		if s, ok := o.(string); ok {
			if lib := content.ParseLibrary(s); lib.Known() {
				out = append(out, lib)
			}
		}
	}
	return out
}

// Definition is the semantics of one library version
type Definition struct {
	Library content.Library
	Fields  []Field
}

// Parse decodes a semantics.json document. Comments and trailing commas are tolerated.
func Parse(data []byte) ([]Field, error) {
	var fields []Field
	if err := json.Unmarshal(jsonc.ToJSON(data), &fields); err != nil {
		return nil, fmt.Errorf("parsing semantics: %w", err)
	}
	return fields, nil
}

// Registry holds semantics definitions keyed by versioned machine name
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]*Definition
	byName map[string][]*Definition
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		defs:   make(map[string]*Definition),
		byName: make(map[string][]*Definition),
	}
}

// Add registers the fields for a library version, replacing an existing entry
func (r *Registry) Add(lib content.Library, fields []Field) {
	if !lib.Known() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	def := &Definition{Library: lib, Fields: fields}
	key := lib.String()
	if _, exists := r.defs[key]; !exists {
		r.byName[lib.MachineName] = append(r.byName[lib.MachineName], def)
	} else {
		list := r.byName[lib.MachineName]
		for i, d := range list {
			if d.Library == lib {
				list[i] = def
			}
		}
	}
	r.defs[key] = def

	sort.Slice(r.byName[lib.MachineName], func(i, j int) bool {
		a, b := r.byName[lib.MachineName][i].Library, r.byName[lib.MachineName][j].Library
		if a.MajorVersion != b.MajorVersion {
			return a.MajorVersion > b.MajorVersion
		}
		return a.MinorVersion > b.MinorVersion
	})
}

// Lookup finds the definition for lib. When the exact version is missing the
// newest registered version of the same machine name is used.
func (r *Registry) Lookup(lib content.Library) (*Definition, bool) {
	if r == nil || !lib.Known() {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.defs[lib.String()]; ok {
		return def, true
	}
	if list := r.byName[lib.MachineName]; len(list) > 0 {
		return list[0], true
	}
	return nil, false
}

// Libraries returns all registered library versions in a stable order
func (r *Registry) Libraries() []content.Library {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]content.Library, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d.Library)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len returns the number of registered definitions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
