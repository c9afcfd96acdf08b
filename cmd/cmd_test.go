/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

const fixtureManifest = `{
	"title": "Course",
	"language": "en",
	"mainLibrary": "H5P.Column",
	"license": "CC BY",
	"licenseVersion": "4.0",
	"authors": [{"name": "Ada", "role": "Author"}],
	"source": "https://example.org/course",
	"preloadedDependencies": [
		{"machineName": "H5P.Column", "majorVersion": 1, "minorVersion": 16},
		{"machineName": "H5P.Image", "majorVersion": 1, "minorVersion": 1}
	]
}`

const fixtureContent = `{
	"content": [
		{
			"library": "H5P.Image 1.1",
			"subContentId": "img-1",
			"params": {"file": {"path": "images/a.png", "mime": "image/png"}, "alt": ""},
			"metadata": {"title": "Picture"}
		}
	]
}`

// writePackage writes a small course with one image lacking alt text
func writePackage(t *testing.T) string {
	t.Helper()

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 20, 10))))

	files := map[string][]byte{
		"h5p.json":             []byte(fixtureManifest),
		"content/content.json": []byte(fixtureContent),
		"content/images/a.png": img.Bytes(),
		"H5P.Column-1.16/semantics.json": []byte(`[
			{"name": "content", "type": "list", "field": {"name": "content", "type": "library"}}
		]`),
		"H5P.Image-1.1/semantics.json": []byte(`[
			{"name": "file", "type": "image"},
			{"name": "alt", "type": "text"}
		]`),
	}

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

// isolate keeps user and project configuration out of the command under test
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CARETAKER_HOME", filepath.Join(dir, "home"))
	t.Setenv("HOME", dir)
	t.Setenv("CARETAKER_ORG_CONFIG_URL", "")
	t.Chdir(dir)
	return dir
}

// execute runs a fresh command tree and returns its stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	registerSubcommands(root)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--no-color", "--log-level", "error"))

	err := root.Execute()
	return out.String(), err
}
