/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package content

import (
	"fmt"
	"strconv"
	"strings"
)

// Category groups diagnostic messages by concern
type Category string

const (
	CategoryAccessibility Category = "accessibility"
	CategoryLicense       Category = "license"
	CategoryEfficiency    Category = "efficiency"
)

// Level represents the severity of a diagnostic message
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Rank orders levels from least (0) to most severe. Unknown levels rank below info.
func (l Level) Rank() int {
	switch l {
	case LevelInfo:
		return 0
	case LevelWarning:
		return 1
	case LevelError:
		return 2
	default:
		return -1
	}
}

// ParseLevel converts a user supplied level name
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("invalid level: %s (expected info, warning or error)", s)
	}
}

// Details carries the location of a finding for downstream rendering
type Details struct {
	Path          string `json:"path"`
	SemanticsPath string `json:"semanticsPath"`
	Title         string `json:"title"`
	SubContentID  string `json:"subContentId"`
}

// Message is one diagnostic finding attached to a content node.
// Messages are values; analyzers build them once and never change them.
type Message struct {
	Category       Category `json:"category"`
	Type           string   `json:"type"`
	Level          Level    `json:"level"`
	Summary        string   `json:"summary"`
	Description    []string `json:"description"`
	Recommendation []string `json:"recommendation,omitempty"`
	Details        Details  `json:"details"`
	SubContentID   string   `json:"subContentId"`
}

// Library identifies a content type by machine name and version.
// The zero value is the explicit "unknown" marker.
type Library struct {
	MachineName  string `json:"machineName"`
	MajorVersion int    `json:"majorVersion"`
	MinorVersion int    `json:"minorVersion"`
}

// ParseLibrary parses a versioned machine name such as "H5P.Image 1.1".
// A missing or malformed version leaves the version at 0.0.
func ParseLibrary(s string) Library {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Library{}
	}

	lib := Library{MachineName: fields[0]}
	if len(fields) < 2 {
		return lib
	}

	major, minor, ok := strings.Cut(fields[1], ".")
	if !ok {
		return lib
	}
	maj, err1 := strconv.Atoi(major)
	// Patch versions ("1.2.3") are tolerated and ignored
	minor, _, _ = strings.Cut(minor, ".")
	mnr, err2 := strconv.Atoi(minor)
	if err1 != nil || err2 != nil || maj < 0 || mnr < 0 {
		return lib
	}
	lib.MajorVersion = maj
	lib.MinorVersion = mnr
	return lib
}

// Known reports whether the library has a machine name
func (l Library) Known() bool {
	return l.MachineName != ""
}

// String returns the versioned machine name ("H5P.Image 1.1")
func (l Library) String() string {
	if !l.Known() {
		return ""
	}
	return fmt.Sprintf("%s %d.%d", l.MachineName, l.MajorVersion, l.MinorVersion)
}
