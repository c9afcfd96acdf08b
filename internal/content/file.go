/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package content

import (
	"encoding/json"
	"math"
	"math/bits"
	"strings"

	"fortio.org/safecast"
)

// FileType is the media kind of a file reference. The empty value is a generic file.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	FileTypeAudio FileType = "audio"
	FileTypeFile  FileType = ""
)

// ParseFileType maps a semantics field type to a FileType
func ParseFileType(s string) FileType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image":
		return FileTypeImage
	case "video":
		return FileTypeVideo
	case "audio":
		return FileTypeAudio
	default:
		return FileTypeFile
	}
}

// Label returns the display name used in descriptions
func (t FileType) Label() string {
	switch t {
	case FileTypeImage:
		return "Image"
	case FileTypeVideo:
		return "Video"
	case FileTypeAudio:
		return "Audio"
	default:
		return "File"
	}
}

// Dimensions holds a pixel size. Width and height are either both known or both unknown.
type Dimensions struct {
	width  int
	height int
	known  bool
}

// NewDimensions validates a width/height pair taken from a generic document.
// Both values must be non-negative integers, otherwise ok is false.
func NewDimensions(width, height any) (Dimensions, bool) {
	w, okW := toPixels(width)
	h, okH := toPixels(height)
	if !okW || !okH {
		return Dimensions{}, false
	}
	return Dimensions{width: w, height: h, known: true}, true
}

// Known reports whether both dimensions are present
func (d Dimensions) Known() bool { return d.known }

// Width returns the width and whether it is known
func (d Dimensions) Width() (int, bool) { return d.width, d.known }

// Height returns the height and whether it is known
func (d Dimensions) Height() (int, bool) { return d.height, d.known }

// Pixels returns width × height when known, saturating at math.MaxInt64
func (d Dimensions) Pixels() (int64, bool) {
	if !d.known {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(d.width), uint64(d.height))
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64, true
	}
	return int64(lo), true
}

// MarshalJSON renders unknown dimensions as null
func (d Dimensions) MarshalJSON() ([]byte, error) {
	if !d.known {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]int{"width": d.width, "height": d.height})
}

func toPixels(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n >= 0
	case int64:
		if n < 0 {
			return 0, false
		}
		out, err := safecast.Conv[int](n)
		return out, err == nil
	case float64:
		if n < 0 {
			return 0, false
		}
		// Convert rejects NaN, infinities and fractions
		out, err := safecast.Convert[int](n)
		return out, err == nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return toPixels(i)
	default:
		return 0, false
	}
}

// FileMetadata is the copyright block attached to an embedded file
type FileMetadata struct {
	Title          string `json:"title,omitempty"`
	Author         string `json:"author,omitempty"`
	License        string `json:"license,omitempty"`
	LicenseVersion string `json:"version,omitempty"`
	Year           string `json:"year,omitempty"`
	Source         string `json:"source,omitempty"`
}

// Empty reports whether no copyright information was given at all
func (m FileMetadata) Empty() bool {
	return m == FileMetadata{}
}

// ParseFileMetadata reads a copyright block, ignoring non-string values
func ParseFileMetadata(v any) FileMetadata {
	obj, ok := v.(map[string]any)
	if !ok {
		return FileMetadata{}
	}
	return FileMetadata{
		Title:          stringField(obj, "title"),
		Author:         stringField(obj, "author"),
		License:        stringField(obj, "license"),
		LicenseVersion: stringField(obj, "version"),
		Year:           stringField(obj, "year"),
		Source:         stringField(obj, "source"),
	}
}

// FileReference is one media asset referenced from a node's parameters
type FileReference struct {
	ID            string       `json:"id"`
	Type          FileType     `json:"type"`
	Path          string       `json:"path"`
	SemanticsPath string       `json:"semanticsPath"`
	LocalPath     string       `json:"localPath"`
	MIME          string       `json:"mime"`
	Dimensions    Dimensions   `json:"dimensions"`
	Base64        *string      `json:"base64,omitempty"`
	Metadata      FileMetadata `json:"metadata"`

	// Owner is the node holding this file; it is not an owning reference.
	Owner NodeID `json:"-"`
}

// SetDimensions assigns width and height from generic values. A malformed
// pair is dropped and the previous dimensions are kept.
func (f *FileReference) SetDimensions(width, height any) bool {
	d, ok := NewDimensions(width, height)
	if !ok {
		return false
	}
	f.Dimensions = d
	return true
}

// Title returns the copyright title or "Untitled"
func (f *FileReference) Title() string {
	if t := strings.TrimSpace(f.Metadata.Title); t != "" {
		return t
	}
	return "Untitled"
}

// IsRemote reports whether the path points outside the package (e.g. a video URL)
func (f *FileReference) IsRemote() bool {
	p := strings.ToLower(f.Path)
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}
