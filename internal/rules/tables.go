/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/caretaker/pkg/safeio"
)

// MaxAncestorDepth bounds how far a resolution cap may look up the tree
const MaxAncestorDepth = 2

// AncestorMatch requires the node at Depth steps above the owning node to have MachineName
type AncestorMatch struct {
	Depth       int    `yaml:"depth" json:"depth" toml:"depth"`
	MachineName string `yaml:"machine_name" json:"machine_name" toml:"machine_name"`
}

// ResolutionCap is the largest size a content type renders an image slot at.
// A zero MaxHeight or MaxWidth means no cap in that dimension unless the
// matching *Param names an ancestor parameter holding the cap.
type ResolutionCap struct {
	PathSuffixes []string       `yaml:"path_suffixes" json:"path_suffixes" toml:"path_suffixes"`
	MaxHeight    float64        `yaml:"max_height,omitempty" json:"max_height,omitempty" toml:"max_height,omitempty"`
	MaxWidth     float64        `yaml:"max_width,omitempty" json:"max_width,omitempty" toml:"max_width,omitempty"`
	Ancestor     *AncestorMatch `yaml:"ancestor,omitempty" json:"ancestor,omitempty" toml:"ancestor,omitempty"`
	HeightParam  string         `yaml:"height_param,omitempty" json:"height_param,omitempty" toml:"height_param,omitempty"`
	WidthParam   string         `yaml:"width_param,omitempty" json:"width_param,omitempty" toml:"width_param,omitempty"`
}

// SizeTier maps a pixel count threshold to a recommended maximum byte size
type SizeTier struct {
	Resolution int64 `yaml:"resolution" json:"resolution" toml:"resolution"`
	MaxBytes   int64 `yaml:"max_bytes" json:"max_bytes" toml:"max_bytes"`
}

// SizeCurve is an ascending list of tiers plus the cap used when the resolution is unknown
type SizeCurve struct {
	Tiers   []SizeTier `yaml:"tiers" json:"tiers" toml:"tiers"`
	Unknown int64      `yaml:"unknown,omitempty" json:"unknown,omitempty" toml:"unknown,omitempty"`
}

// MaxBytes returns the value of the largest tier whose threshold is <= pixels,
// or the first tier when none qualifies.
func (c SizeCurve) MaxBytes(pixels int64) int64 {
	if len(c.Tiers) == 0 {
		return 0
	}
	for i := len(c.Tiers) - 1; i >= 0; i-- {
		if c.Tiers[i].Resolution <= pixels {
			return c.Tiers[i].MaxBytes
		}
	}
	return c.Tiers[0].MaxBytes
}

// UnknownMaxBytes is the cap for images of unknown resolution
func (c SizeCurve) UnknownMaxBytes() int64 {
	if c.Unknown > 0 {
		return c.Unknown
	}
	if len(c.Tiers) == 0 {
		return 0
	}
	return c.Tiers[0].MaxBytes
}

// AltTextRule names the sibling parameters describing an image slot
type AltTextRule struct {
	FileSuffix      string `yaml:"file_suffix" json:"file_suffix" toml:"file_suffix"`
	AltParam        string `yaml:"alt_param" json:"alt_param" toml:"alt_param"`
	DecorativeParam string `yaml:"decorative_param,omitempty" json:"decorative_param,omitempty" toml:"decorative_param,omitempty"`
}

// CaptionRule locates video sources and text tracks of a video content type
type CaptionRule struct {
	SourcesParam string `yaml:"sources_param" json:"sources_param" toml:"sources_param"`
	TracksParam  string `yaml:"tracks_param" json:"tracks_param" toml:"tracks_param"`
}

// LicenseTable classifies license codes
type LicenseTable struct {
	// Undisclosed codes count as a missing license
	Undisclosed []string `yaml:"undisclosed" json:"undisclosed" toml:"undisclosed"`
	// Versioned codes need a license version
	Versioned []string `yaml:"versioned" json:"versioned" toml:"versioned"`
	// Attribution codes need an author
	Attribution []string `yaml:"attribution" json:"attribution" toml:"attribution"`
	// SourceRequired codes should name the original source
	SourceRequired []string `yaml:"source_required" json:"source_required" toml:"source_required"`
	// ExtrasRequired codes should carry license extras
	ExtrasRequired []string `yaml:"extras_required" json:"extras_required" toml:"extras_required"`
}

func hasCode(codes []string, license string) bool {
	license = strings.TrimSpace(license)
	for _, c := range codes {
		if strings.EqualFold(c, license) {
			return true
		}
	}
	return false
}

// Tables is the rule configuration shared by all analyzers. Analyzers never modify it.
type Tables struct {
	ZoomFactor     float64                    `yaml:"zoom_factor" json:"zoom_factor" toml:"zoom_factor"`
	MediaGlob      string                     `yaml:"media_glob" json:"media_glob" toml:"media_glob"`
	ResolutionCaps map[string][]ResolutionCap `yaml:"resolution_caps" json:"resolution_caps" toml:"resolution_caps"`
	SizeCurves     map[string]SizeCurve       `yaml:"size_curves" json:"size_curves" toml:"size_curves"`
	AltText        map[string][]AltTextRule   `yaml:"alt_text" json:"alt_text" toml:"alt_text"`
	Captions       map[string]CaptionRule     `yaml:"captions" json:"captions" toml:"captions"`
	Licenses       LicenseTable               `yaml:"licenses" json:"licenses" toml:"licenses"`
}

// GenericCurve is the size curve key used for unrecognized image types
const GenericCurve = "*"

// DefaultTables returns the built-in rule tables
func DefaultTables() *Tables {
	ccBy := []string{"CC BY", "CC BY-SA", "CC BY-ND", "CC BY-NC", "CC BY-NC-SA", "CC BY-NC-ND"}

	return &Tables{
		ZoomFactor: 4,
		MediaGlob:  "images/**",
		ResolutionCaps: map[string][]ResolutionCap{
			"H5P.BranchingScenario": {
				{PathSuffixes: []string{".startScreenImage", ".endScreenImage"}, MaxHeight: 240},
			},
			"H5P.Dialogcards": {
				{PathSuffixes: []string{".image"}, MaxHeight: 240},
			},
			"H5P.Flashcards": {
				{PathSuffixes: []string{".image"}, MaxHeight: 240},
			},
			"H5P.Image": {
				{
					PathSuffixes: []string{".titleScreenImage.params.file", ".endScreenImage.params.file"},
					MaxHeight:    240,
					Ancestor:     &AncestorMatch{Depth: 1, MachineName: "H5P.ARScavenger"},
				},
				{
					PathSuffixes: []string{".coverMedium.params.file"},
					MaxHeight:    240,
					Ancestor:     &AncestorMatch{Depth: 1, MachineName: "H5P.InteractiveBook"},
				},
				{
					PathSuffixes: []string{".image.params.file"},
					Ancestor:     &AncestorMatch{Depth: 1, MachineName: "H5P.InfoWall"},
					HeightParam:  "behaviour.imageHeight",
					WidthParam:   "behaviour.imageWidth",
				},
			},
			"H5P.ImageHotspots": {
				{PathSuffixes: []string{"iconImage"}, MaxHeight: 75, MaxWidth: 75},
			},
			"H5P.ImagePair": {
				{PathSuffixes: []string{".image", ".match"}, MaxHeight: 106, MaxWidth: 106},
			},
			"H5P.ImageSequencing": {
				{PathSuffixes: []string{".image"}, MaxHeight: 165.6, MaxWidth: 165.6},
			},
		},
		SizeCurves: map[string]SizeCurve{
			"jpeg": {Tiers: []SizeTier{{0, 51200}, {10000, 102400}, {307200, 204800}, {2073600, 512000}}},
			"png":  {Tiers: []SizeTier{{0, 51200}, {10000, 153600}, {307200, 307200}, {2073600, 512000}}},
			"gif":  {Tiers: []SizeTier{{0, 51200}, {10000, 204800}, {307200, 512000}, {2073600, 1048576}}},
			GenericCurve: {
				Tiers:   []SizeTier{{0, 51200}, {10000, 204800}, {960000, 512000}},
				Unknown: 204800,
			},
		},
		AltText: map[string][]AltTextRule{
			"H5P.Image":           {{FileSuffix: "file", AltParam: "alt", DecorativeParam: "decorative"}},
			"H5P.Dialogcards":     {{FileSuffix: "image", AltParam: "imageAltText"}},
			"H5P.Flashcards":      {{FileSuffix: "image", AltParam: "imageAltText"}},
			"H5P.ImagePair":       {{FileSuffix: "image", AltParam: "imageAlt"}, {FileSuffix: "match", AltParam: "matchAlt"}},
			"H5P.ImageSequencing": {{FileSuffix: "image", AltParam: "imageDescription"}},
			"H5P.MemoryGame":      {{FileSuffix: "image", AltParam: "imageAlt"}},
			"H5P.ImageHotspots":   {{FileSuffix: "image", AltParam: "backgroundImageAltText"}},
		},
		Captions: map[string]CaptionRule{
			"H5P.Video": {SourcesParam: "sources", TracksParam: "a11y"},
		},
		Licenses: LicenseTable{
			Undisclosed:    []string{"U"},
			Versioned:      ccBy,
			Attribution:    append(append([]string{}, ccBy...), "GNU GPL", "ODC-By"),
			SourceRequired: ccBy,
			ExtrasRequired: []string{"C"},
		},
	}
}

// LoadTables reads rule tables from a YAML, JSON(C) or TOML file. Sections
// present in the file replace the built-in ones; absent sections keep their defaults.
func LoadTables(path string) (*Tables, error) {
	data, err := safeio.ReadFileClean(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule tables: %w", err)
	}

	var override Tables
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &override)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &override)
	case ".toml":
		err = toml.Unmarshal(data, &override)
	default:
		return nil, fmt.Errorf("unsupported rule table format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing rule tables %s: %w", path, err)
	}

	tables := DefaultTables()
	tables.merge(&override)
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule tables %s: %w", path, err)
	}
	return tables, nil
}

func (t *Tables) merge(o *Tables) {
	if o.ZoomFactor > 0 {
		t.ZoomFactor = o.ZoomFactor
	}
	if o.MediaGlob != "" {
		t.MediaGlob = o.MediaGlob
	}
	for k, v := range o.ResolutionCaps {
		t.ResolutionCaps[k] = v
	}
	for k, v := range o.SizeCurves {
		t.SizeCurves[k] = v
	}
	for k, v := range o.AltText {
		t.AltText[k] = v
	}
	for k, v := range o.Captions {
		t.Captions[k] = v
	}
	if o.Licenses.Undisclosed != nil {
		t.Licenses.Undisclosed = o.Licenses.Undisclosed
	}
	if o.Licenses.Versioned != nil {
		t.Licenses.Versioned = o.Licenses.Versioned
	}
	if o.Licenses.Attribution != nil {
		t.Licenses.Attribution = o.Licenses.Attribution
	}
	if o.Licenses.SourceRequired != nil {
		t.Licenses.SourceRequired = o.Licenses.SourceRequired
	}
	if o.Licenses.ExtrasRequired != nil {
		t.Licenses.ExtrasRequired = o.Licenses.ExtrasRequired
	}
}

// Validate checks the invariants the analyzers rely on
func (t *Tables) Validate() error {
	if !doublestar.ValidatePattern(t.MediaGlob) {
		return fmt.Errorf("invalid media glob %q", t.MediaGlob)
	}
	if t.ZoomFactor < 1 {
		return fmt.Errorf("zoom factor must be at least 1, got %v", t.ZoomFactor)
	}
	if _, ok := t.SizeCurves[GenericCurve]; !ok {
		return fmt.Errorf("size curve %q is required", GenericCurve)
	}

	names := make([]string, 0, len(t.SizeCurves))
	for name := range t.SizeCurves {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		curve := t.SizeCurves[name]
		if len(curve.Tiers) == 0 {
			return fmt.Errorf("size curve %q has no tiers", name)
		}
		for i := 1; i < len(curve.Tiers); i++ {
			if curve.Tiers[i].Resolution <= curve.Tiers[i-1].Resolution {
				return fmt.Errorf("size curve %q thresholds must ascend", name)
			}
		}
	}

	for name, caps := range t.ResolutionCaps {
		for _, c := range caps {
			if len(c.PathSuffixes) == 0 {
				return fmt.Errorf("resolution cap for %s has no path suffix", name)
			}
			if c.Ancestor != nil && (c.Ancestor.Depth < 1 || c.Ancestor.Depth > MaxAncestorDepth) {
				return fmt.Errorf("resolution cap for %s: ancestor depth %d outside 1..%d", name, c.Ancestor.Depth, MaxAncestorDepth)
			}
		}
	}
	return nil
}

// DumpYAML renders the tables in the format LoadTables accepts
func (t *Tables) DumpYAML() ([]byte, error) {
	out, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding rule tables: %w", err)
	}
	return out, nil
}
