/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package h5p

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fulmenhq/caretaker/internal/content"
)

// Version accepts both numeric and string version components ("1" and 1)
type Version int

func (v *Version) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid version component %s", data)
	}
	*v = Version(n)
	return nil
}

// Dependency is one entry of preloadedDependencies
type Dependency struct {
	MachineName  string  `json:"machineName"`
	MajorVersion Version `json:"majorVersion"`
	MinorVersion Version `json:"minorVersion"`
}

// Library converts the dependency to a library identity
func (d Dependency) Library() content.Library {
	return content.Library{
		MachineName:  d.MachineName,
		MajorVersion: int(d.MajorVersion),
		MinorVersion: int(d.MinorVersion),
	}
}

// Manifest is the decoded h5p.json
type Manifest struct {
	Title                 string       `json:"title"`
	Language              string       `json:"language,omitempty"`
	MainLibrary           string       `json:"mainLibrary"`
	EmbedTypes            []string     `json:"embedTypes,omitempty"`
	PreloadedDependencies []Dependency `json:"preloadedDependencies"`

	// Metadata is the license and author information shared with content nodes
	Metadata content.Metadata `json:"-"`
}

// MainLibraryVersion resolves the main library against the dependency list.
// A main library missing from the list is returned without a version.
func (m *Manifest) MainLibraryVersion() content.Library {
	for _, d := range m.PreloadedDependencies {
		if d.MachineName == m.MainLibrary {
			return d.Library()
		}
	}
	return content.Library{MachineName: m.MainLibrary}
}

// Libraries returns the declared dependencies as library identities
func (m *Manifest) Libraries() []content.Library {
	out := make([]content.Library, 0, len(m.PreloadedDependencies))
	for _, d := range m.PreloadedDependencies {
		out = append(out, d.Library())
	}
	return out
}

func parseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	m.Metadata = content.ParseMetadata(raw)
	return &m, nil
}

// libraryDescriptor is the part of library.json needed to identify a library folder
type libraryDescriptor struct {
	MachineName  string  `json:"machineName"`
	MajorVersion Version `json:"majorVersion"`
	MinorVersion Version `json:"minorVersion"`
}

// libraryFromDir parses a library folder name such as "H5P.Image-1.1"
func libraryFromDir(dir string) (content.Library, bool) {
	i := strings.LastIndex(dir, "-")
	if i <= 0 {
		return content.Library{}, false
	}
	lib := content.ParseLibrary(dir[:i] + " " + dir[i+1:])
	if lib.MajorVersion == 0 && lib.MinorVersion == 0 && dir[i+1:] != "0.0" {
		return content.Library{}, false
	}
	return lib, true
}
