/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package h5p

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/caretaker/internal/builder"
	"github.com/fulmenhq/caretaker/internal/content"
)

const testManifest = `{
	"title": "Course",
	"language": "en",
	"mainLibrary": "H5P.Column",
	"embedTypes": ["div"],
	"license": "CC BY",
	"licenseVersion": "4.0",
	"preloadedDependencies": [
		{"machineName": "H5P.Column", "majorVersion": 1, "minorVersion": "16"},
		{"machineName": "H5P.Image", "majorVersion": "1", "minorVersion": 1}
	]
}`

const testContent = `{
	"content": [
		{
			"library": "H5P.Image 1.1",
			"subContentId": "img-1",
			"params": {"file": {"path": "images/a.png", "mime": "image/png"}, "alt": ""},
			"metadata": {"title": "Picture"}
		}
	]
}`

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func packageFiles(t *testing.T) map[string][]byte {
	t.Helper()
	return map[string][]byte{
		"h5p.json":                    []byte(testManifest),
		"content/content.json":        []byte(testContent),
		"content/images/a.png":        pngBytes(t, 20, 10),
		"content/images/notes.txt":    []byte("not an image"),
		"H5P.Column-1.16/library.json": []byte(`{"machineName": "H5P.Column", "majorVersion": 1, "minorVersion": 16}`),
		"H5P.Column-1.16/semantics.json": []byte(`[
			{"name": "content", "type": "list", "field": {"name": "content", "type": "library"}}
		]`),
		"H5P.Image-1.1/semantics.json": []byte(`[
			{"name": "file", "type": "image"},
			{"name": "alt", "type": "text"}
		]`),
	}
}

func writeZip(t *testing.T, files map[string][]byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "course.h5p")
	f, err := os.Create(p)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func writeDir(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, data, 0o600))
	}
	return root
}

func assertPackage(t *testing.T, pkg *Package) {
	t.Helper()
	assert.True(t, strings.HasPrefix(pkg.Digest, "blake3:"), pkg.Digest)
	assert.Equal(t, "Course", pkg.Manifest.Title)
	assert.Equal(t, "CC BY", pkg.Manifest.Metadata.License)
	assert.Equal(t, content.Library{MachineName: "H5P.Column", MajorVersion: 1, MinorVersion: 16}, pkg.Manifest.MainLibraryVersion())
	assert.Len(t, pkg.Manifest.Libraries(), 2)
	assert.Equal(t, 2, pkg.Semantics.Len())

	img, ok := pkg.Media.Lookup("images/a.png")
	require.True(t, ok)
	assert.Positive(t, img.Size)
	w, _ := img.Dimensions.Width()
	h, _ := img.Dimensions.Height()
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)

	notes, ok := pkg.Media.Lookup("images/notes.txt")
	require.True(t, ok)
	assert.False(t, notes.Dimensions.Known())

	_, ok = pkg.Media["content.json"]
	assert.False(t, ok)
}

func TestOpen_Zip(t *testing.T) {
	p := writeZip(t, packageFiles(t))

	pkg, err := Open(context.Background(), p)
	require.NoError(t, err)
	assertPackage(t, pkg)

	again, err := Open(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, pkg.Digest, again.Digest)
}

func TestOpen_Directory(t *testing.T) {
	files := packageFiles(t)
	pkg, err := Open(context.Background(), writeDir(t, files))
	require.NoError(t, err)
	assertPackage(t, pkg)

	files["content/images/b.png"] = pngBytes(t, 1, 1)
	changed, err := Open(context.Background(), writeDir(t, files))
	require.NoError(t, err)
	assert.NotEqual(t, pkg.Digest, changed.Digest)
}

func TestOpen_DocumentBuildsTree(t *testing.T) {
	pkg, err := Open(context.Background(), writeZip(t, packageFiles(t)))
	require.NoError(t, err)

	doc := pkg.Document()
	assert.Equal(t, "Course", doc.Metadata.Title)

	tree, err := builder.Build(doc, pkg.Semantics, builder.WithMedia(pkg.Media))
	require.NoError(t, err)
	require.Equal(t, 2, tree.Len())

	root := tree.Node(tree.Roots()[0])
	img := tree.Node(root.Children()[0])
	assert.Equal(t, "img-1", img.SubContentID)
	require.Len(t, img.Files(), 1)
	w, ok := img.Files()[0].Dimensions.Width()
	assert.True(t, ok)
	assert.Equal(t, 20, w)
}

func TestOpen_ProbeGlobDisabled(t *testing.T) {
	pkg, err := Open(context.Background(), writeZip(t, packageFiles(t)), WithProbeGlob(""))
	require.NoError(t, err)
	img, ok := pkg.Media.Lookup("images/a.png")
	require.True(t, ok)
	assert.False(t, img.Dimensions.Known())
}

func TestOpen_InvalidProbeGlob(t *testing.T) {
	_, err := Open(context.Background(), writeZip(t, packageFiles(t)), WithProbeGlob("images/["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid probe glob")
}

func TestOpen_SkipsBrokenSemantics(t *testing.T) {
	files := packageFiles(t)
	files["H5P.Image-1.1/semantics.json"] = []byte(`{not json`)
	files["Broken/semantics.json"] = []byte(`[]`)

	pkg, err := Open(context.Background(), writeZip(t, files))
	require.NoError(t, err)
	assert.Equal(t, 1, pkg.Semantics.Len())
	_, ok := pkg.Semantics.Lookup(content.ParseLibrary("H5P.Column 1.16"))
	assert.True(t, ok)
}

func TestPackage_MissingSemantics(t *testing.T) {
	pkg, err := Open(context.Background(), writeZip(t, packageFiles(t)))
	require.NoError(t, err)
	assert.Empty(t, pkg.MissingSemantics())

	files := packageFiles(t)
	delete(files, "H5P.Image-1.1/semantics.json")
	pkg, err = Open(context.Background(), writeZip(t, files))
	require.NoError(t, err)
	assert.Equal(t, []content.Library{{MachineName: "H5P.Image", MajorVersion: 1, MinorVersion: 1}}, pkg.MissingSemantics())
}

func TestOpen_InvalidPackages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string][]byte)
		want   string
	}{
		{
			name:   "missing manifest",
			mutate: func(f map[string][]byte) { delete(f, "h5p.json") },
			want:   "missing h5p.json",
		},
		{
			name:   "manifest without main library",
			mutate: func(f map[string][]byte) { f["h5p.json"] = []byte(`{"title": "x", "preloadedDependencies": []}`) },
			want:   "does not match schema",
		},
		{
			name:   "manifest not json",
			mutate: func(f map[string][]byte) { f["h5p.json"] = []byte(`title: x`) },
			want:   "h5p.json",
		},
		{
			name:   "missing content",
			mutate: func(f map[string][]byte) { delete(f, "content/content.json") },
			want:   "missing content/content.json",
		},
		{
			name:   "content not an object",
			mutate: func(f map[string][]byte) { f["content/content.json"] = []byte(`[1, 2]`) },
			want:   "parsing content/content.json",
		},
		{
			name:   "zip slip",
			mutate: func(f map[string][]byte) { f["../evil.txt"] = []byte("x") },
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := packageFiles(t)
			tt.mutate(files)
			_, err := Open(context.Background(), writeZip(t, files))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPackage), err.Error())
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

func TestOpen_NotAnArchive(t *testing.T) {
	p := filepath.Join(t.TempDir(), "course.h5p")
	require.NoError(t, os.WriteFile(p, []byte("plain text"), 0o600))

	_, err := Open(context.Background(), p)
	require.ErrorIs(t, err, ErrInvalidPackage)
}

func TestOpen_MissingPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.h5p"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidPackage))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOpen_JSONSizeLimit(t *testing.T) {
	_, err := Open(context.Background(), writeZip(t, packageFiles(t)), WithMaxJSONSize(16))
	require.ErrorIs(t, err, ErrInvalidPackage)
	assert.Contains(t, err.Error(), "limit")
}

func TestOpen_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, writeZip(t, packageFiles(t)))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLibraryFromDir(t *testing.T) {
	tests := []struct {
		dir  string
		want content.Library
		ok   bool
	}{
		{"H5P.Image-1.1", content.Library{MachineName: "H5P.Image", MajorVersion: 1, MinorVersion: 1}, true},
		{"H5P.InteractiveVideo-1.27", content.Library{MachineName: "H5P.InteractiveVideo", MajorVersion: 1, MinorVersion: 27}, true},
		{"FontAwesome-4.5", content.Library{MachineName: "FontAwesome", MajorVersion: 4, MinorVersion: 5}, true},
		{"Broken", content.Library{}, false},
		{"-1.0", content.Library{}, false},
		{"H5P.Image-latest", content.Library{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			got, ok := libraryFromDir(tt.dir)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestVersion_UnmarshalJSON(t *testing.T) {
	m, err := parseManifest([]byte(`{"mainLibrary": "H5P.Foo", "preloadedDependencies": [{"machineName": "H5P.Foo", "majorVersion": "2", "minorVersion": 3}]}`))
	require.NoError(t, err)
	assert.Equal(t, content.Library{MachineName: "H5P.Foo", MajorVersion: 2, MinorVersion: 3}, m.MainLibraryVersion())

	_, err = parseManifest([]byte(`{"preloadedDependencies": [{"machineName": "H5P.Foo", "majorVersion": "two"}]}`))
	require.Error(t, err)
}

func TestMainLibraryVersion_NotDeclared(t *testing.T) {
	m := &Manifest{MainLibrary: "H5P.Missing"}
	assert.Equal(t, content.Library{MachineName: "H5P.Missing"}, m.MainLibraryVersion())
}
