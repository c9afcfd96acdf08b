/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package content

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNewDimensions(t *testing.T) {
	tests := []struct {
		name   string
		width  any
		height any
		ok     bool
	}{
		{"ints", 100, 50, true},
		{"json floats", float64(640), float64(480), true},
		{"json number", json.Number("12"), json.Number("7"), true},
		{"zero", 0, 0, true},
		{"fractional width", 10.5, float64(3), false},
		{"NaN width", math.NaN(), float64(3), false},
		{"infinite height", float64(3), math.Inf(1), false},
		{"negative float", float64(-4), float64(3), false},
		{"negative height", 10, -1, false},
		{"string width", "100", 50, false},
		{"missing height", 100, nil, false},
		{"both missing", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := NewDimensions(tt.width, tt.height)
			if ok != tt.ok {
				t.Fatalf("NewDimensions(%v, %v) ok = %v, want %v", tt.width, tt.height, ok, tt.ok)
			}
			if d.Known() != tt.ok {
				t.Fatalf("Known() = %v, want %v", d.Known(), tt.ok)
			}
			_, wKnown := d.Width()
			_, hKnown := d.Height()
			if wKnown != hKnown {
				t.Fatalf("mixed dimension state: width known=%v height known=%v", wKnown, hKnown)
			}
		})
	}
}

func TestDimensions_PixelsSaturates(t *testing.T) {
	d, ok := NewDimensions(float64(4e9), float64(4e9))
	if !ok {
		t.Fatal("expected huge integral dimensions to be accepted")
	}
	px, known := d.Pixels()
	if !known || px != math.MaxInt64 {
		t.Fatalf("Pixels() = %d, %v; want %d, true", px, known, int64(math.MaxInt64))
	}

	d, _ = NewDimensions(3, 4)
	if px, _ := d.Pixels(); px != 12 {
		t.Fatalf("Pixels() = %d, want 12", px)
	}
}

func TestFileReference_SetDimensionsKeepsPrevious(t *testing.T) {
	f := &FileReference{}
	if !f.SetDimensions(float64(800), float64(600)) {
		t.Fatal("expected valid dimensions to be accepted")
	}
	if f.SetDimensions("wide", float64(10)) {
		t.Fatal("expected malformed width to be rejected")
	}
	w, _ := f.Dimensions.Width()
	h, _ := f.Dimensions.Height()
	if w != 800 || h != 600 {
		t.Fatalf("expected previous 800x600 to be kept, got %dx%d", w, h)
	}
	px, ok := f.Dimensions.Pixels()
	if !ok || px != 480000 {
		t.Fatalf("Pixels() = %d, %v", px, ok)
	}
}

func TestDimensions_MarshalJSON(t *testing.T) {
	var unknown Dimensions
	b, err := json.Marshal(unknown)
	if err != nil || string(b) != "null" {
		t.Fatalf("unknown dimensions marshal = %s, %v", b, err)
	}
	d, _ := NewDimensions(2, 3)
	b, _ = json.Marshal(d)
	if string(b) != `{"height":3,"width":2}` {
		t.Fatalf("unexpected JSON: %s", b)
	}
}

func TestDetails_MarshalKeepsAllKeys(t *testing.T) {
	b, err := json.Marshal(Details{Title: "Course", SubContentID: "root"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"path":"","semanticsPath":"","title":"Course","subContentId":"root"}`
	if string(b) != want {
		t.Fatalf("node-level details = %s, want %s", b, want)
	}
}

func TestParseFileMetadata(t *testing.T) {
	md := ParseFileMetadata(map[string]any{"license": "CC BY", "version": "4.0", "author": "Ada", "year": 2020})
	if md.License != "CC BY" || md.LicenseVersion != "4.0" || md.Author != "Ada" {
		t.Fatalf("unexpected metadata: %+v", md)
	}
	if md.Year != "" {
		t.Fatalf("non-string year should be ignored, got %q", md.Year)
	}
	if !ParseFileMetadata("nope").Empty() {
		t.Fatal("expected empty metadata for non-object input")
	}
}

func TestParseLibrary(t *testing.T) {
	tests := []struct {
		in    string
		name  string
		major int
		minor int
		str   string
	}{
		{"H5P.Image 1.1", "H5P.Image", 1, 1, "H5P.Image 1.1"},
		{"H5P.Column 1.16.4", "H5P.Column", 1, 16, "H5P.Column 1.16"},
		{"H5P.Text", "H5P.Text", 0, 0, "H5P.Text 0.0"},
		{"H5P.Broken x.y", "H5P.Broken", 0, 0, "H5P.Broken 0.0"},
		{"", "", 0, 0, ""},
	}
	for _, tt := range tests {
		lib := ParseLibrary(tt.in)
		if lib.MachineName != tt.name || lib.MajorVersion != tt.major || lib.MinorVersion != tt.minor {
			t.Errorf("ParseLibrary(%q) = %+v", tt.in, lib)
		}
		if lib.String() != tt.str {
			t.Errorf("ParseLibrary(%q).String() = %q, want %q", tt.in, lib.String(), tt.str)
		}
	}
}

func TestLookup(t *testing.T) {
	params := map[string]any{
		"behaviour": map[string]any{"imageHeight": float64(200)},
		"cards": []any{
			map[string]any{"image": map[string]any{"path": "images/x.png"}, "imageAltText": "A cat"},
		},
	}

	if v, ok := Lookup(params, "behaviour.imageHeight"); !ok || v.(float64) != 200 {
		t.Fatalf("lookup behaviour.imageHeight = %v, %v", v, ok)
	}
	if s, ok := LookupString(params, "cards[0].imageAltText"); !ok || s != "A cat" {
		t.Fatalf("lookup cards[0].imageAltText = %q, %v", s, ok)
	}
	if _, ok := Lookup(params, "cards[3].image"); ok {
		t.Fatal("out of range index should not resolve")
	}
	if _, ok := Lookup(params, "cards[x]"); ok {
		t.Fatal("malformed index should not resolve")
	}
	if got := SiblingPath("cards[0].image", "imageAltText"); got != "cards[0].imageAltText" {
		t.Fatalf("SiblingPath = %q", got)
	}
	if got := SiblingPath("file", "alt"); got != "alt" {
		t.Fatalf("SiblingPath = %q", got)
	}
	if got := IndexPath(JoinPath("a", "b"), 2); got != "a.b[2]" {
		t.Fatalf("IndexPath = %q", got)
	}
}
