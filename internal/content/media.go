/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package content

import "strings"

// MediaInfo is what the package reader knows about one embedded file
type MediaInfo struct {
	Size       int64      `json:"size"`
	Dimensions Dimensions `json:"dimensions"`
}

// MediaIndex maps content-relative paths ("images/a.png") to raw file facts
type MediaIndex map[string]MediaInfo

// Lookup finds the entry for a file path as written in the content parameters
func (m MediaIndex) Lookup(path string) (MediaInfo, bool) {
	if m == nil {
		return MediaInfo{}, false
	}
	info, ok := m[normalizeMediaPath(path)]
	return info, ok
}

// Size returns the byte size of the file at path when it is indexed
func (m MediaIndex) Size(path string) (int64, bool) {
	info, ok := m.Lookup(path)
	if !ok {
		return 0, false
	}
	return info.Size, true
}

// Some editors store paths with a "#tmp" suffix or a leading "./"
func normalizeMediaPath(p string) string {
	p = strings.TrimSuffix(p, "#tmp")
	p = strings.TrimPrefix(p, "./")
	return strings.TrimPrefix(p, "content/")
}
