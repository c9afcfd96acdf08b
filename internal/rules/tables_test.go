/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTables(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultTables_Valid(t *testing.T) {
	require.NoError(t, DefaultTables().Validate())
}

func TestLoadTables_YAMLOverridesSection(t *testing.T) {
	p := writeTables(t, "rules.yaml", `
zoom_factor: 2
resolution_caps:
  H5P.Image:
    - path_suffixes: [".file"]
      max_height: 300
licenses:
  extras_required: ["C", "PD"]
`)
	tables, err := LoadTables(p)
	require.NoError(t, err)

	assert.Equal(t, float64(2), tables.ZoomFactor)
	assert.Equal(t, []ResolutionCap{{PathSuffixes: []string{".file"}, MaxHeight: 300}}, tables.ResolutionCaps["H5P.Image"])
	assert.Equal(t, []string{"C", "PD"}, tables.Licenses.ExtrasRequired)

	// untouched sections keep the built-in values
	defaults := DefaultTables()
	assert.Equal(t, defaults.MediaGlob, tables.MediaGlob)
	assert.Equal(t, defaults.ResolutionCaps["H5P.ImagePair"], tables.ResolutionCaps["H5P.ImagePair"])
	assert.Equal(t, defaults.Licenses.Versioned, tables.Licenses.Versioned)
}

func TestLoadTables_JSONC(t *testing.T) {
	p := writeTables(t, "rules.jsonc", `{
  // only look at uploaded files
  "media_glob": "files/**",
  "size_curves": {
    "png": {"tiers": [{"resolution": 0, "max_bytes": 1024}]}, /* tiny */
  }
}`)
	tables, err := LoadTables(p)
	require.NoError(t, err)
	assert.Equal(t, "files/**", tables.MediaGlob)
	assert.Equal(t, int64(1024), tables.SizeCurves["png"].MaxBytes(5_000_000))
	assert.Equal(t, int64(204800), tables.SizeCurves[GenericCurve].UnknownMaxBytes())
}

func TestLoadTables_TOML(t *testing.T) {
	p := writeTables(t, "rules.toml", `
zoom_factor = 3.0

[size_curves."*"]
unknown = 100000
tiers = [{ resolution = 0, max_bytes = 1000 }, { resolution = 500, max_bytes = 2000 }]
`)
	tables, err := LoadTables(p)
	require.NoError(t, err)
	assert.Equal(t, float64(3), tables.ZoomFactor)
	curve := tables.SizeCurves[GenericCurve]
	assert.Equal(t, int64(100000), curve.UnknownMaxBytes())
	assert.Equal(t, int64(2000), curve.MaxBytes(500))
	assert.Contains(t, tables.SizeCurves, "jpeg")
}

func TestLoadTables_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"unsupported extension", "rules.ini", "x=1", "unsupported rule table format"},
		{"malformed yaml", "rules.yaml", "zoom_factor: [", "parsing rule tables"},
		{"bad glob", "rules.yaml", "media_glob: \"images/[\"", "invalid media glob"},
		{"zoom below one", "rules.yaml", "zoom_factor: 0.5", "zoom factor must be at least 1"},
		{"descending tiers", "rules.yaml", "size_curves:\n  png:\n    tiers:\n      - {resolution: 10, max_bytes: 1}\n      - {resolution: 5, max_bytes: 2}\n", "thresholds must ascend"},
		{"empty curve", "rules.yaml", "size_curves:\n  gif:\n    tiers: []\n", "has no tiers"},
		{"cap without suffix", "rules.yaml", "resolution_caps:\n  H5P.Foo:\n    - max_height: 10\n", "has no path suffix"},
		{"ancestor too deep", "rules.yaml", "resolution_caps:\n  H5P.Foo:\n    - path_suffixes: [x]\n      ancestor: {depth: 3, machine_name: H5P.Bar}\n", "ancestor depth 3 outside 1..2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTables(writeTables(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading rule tables")
}

func TestTables_DumpYAMLRoundTrip(t *testing.T) {
	out, err := DefaultTables().DumpYAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "zoom_factor: 4")
	assert.Contains(t, string(out), "H5P.InfoWall")

	reloaded, err := LoadTables(writeTables(t, "dump.yaml", string(out)))
	require.NoError(t, err)
	assert.Equal(t, DefaultTables(), reloaded)
}
