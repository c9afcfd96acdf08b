/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/caretaker/internal/content"
)

func licenseTypes(msgs []content.Message) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.Type)
	}
	return out
}

func runLicense(t *testing.T, tree *content.Tree, env *Env) {
	t.Helper()
	require.NoError(t, LicenseAnalyzer{}.Analyze(context.Background(), tree, env, tree))
}

func TestLicense_NodeRules(t *testing.T) {
	tests := []struct {
		name string
		md   content.Metadata
		want []string
	}{
		{"missing", content.Metadata{}, []string{TypeMissingLicense}},
		{"undisclosed", content.Metadata{License: "U"}, []string{TypeMissingLicense}},
		{"cc by bare", content.Metadata{License: "CC BY"}, []string{TypeMissingLicenseVersion, TypeMissingAuthor, TypeMissingSource}},
		{"cc by complete", content.Metadata{
			License: "CC BY-SA", LicenseVersion: "4.0", Source: "https://example.org", Authors: []content.Author{{Name: "Ada"}},
		}, nil},
		{"cc0", content.Metadata{License: "CC0 1.0"}, nil},
		{"gpl without author", content.Metadata{License: "GNU GPL"}, []string{TypeMissingAuthor}},
		{"copyright without extras", content.Metadata{License: "C"}, []string{TypeMissingLicenseExtras}},
		{"copyright with extras", content.Metadata{License: "C", LicenseExtras: "Used with permission"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := content.NewTree()
			id := tree.AddNode(content.NoNode, &content.Node{SubContentID: "n", Library: content.ParseLibrary("H5P.Text 1.1"), Metadata: tt.md})
			runLicense(t, tree, nil)
			assert.Equal(t, tt.want, licenseTypes(tree.Node(id).Messages()))
		})
	}
}

func TestLicense_MissingLicenseMessage(t *testing.T) {
	tree := content.NewTree()
	id := tree.AddNode(content.NoNode, &content.Node{SubContentID: "n", Library: content.ParseLibrary("H5P.Text 1.1"), Metadata: content.Metadata{Title: "Intro", License: "U"}})
	runLicense(t, tree, nil)

	msgs := tree.Node(id).Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, content.LevelError, msgs[0].Level)
	assert.Equal(t, "Missing license information for Intro (H5P.Text).", msgs[0].Summary)
	assert.Equal(t, []string{"The license is undisclosed."}, msgs[0].Description)
	assert.Equal(t, content.Details{Title: "Intro", SubContentID: "n"}, msgs[0].Details)
}

func TestLicense_FileCopyright(t *testing.T) {
	tree := content.NewTree()
	id := tree.AddNode(content.NoNode, &content.Node{
		SubContentID: "img",
		Library:      content.ParseLibrary("H5P.Image 1.1"),
		Metadata:     content.Metadata{Title: "Photo", License: "CC0 1.0"},
	})
	withBlock := image("images/a.png", "file", "image/png", 1, 1)
	withBlock.Metadata = content.FileMetadata{Title: "Sunset", License: "CC BY", LicenseVersion: "4.0", Source: "https://example.org"}
	withoutBlock := image("images/b.png", "other", "image/png", 1, 1)
	require.True(t, tree.AddFile(id, withBlock))
	require.True(t, tree.AddFile(id, withoutBlock))

	runLicense(t, tree, nil)

	msgs := tree.Node(id).Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeMissingAuthor, msgs[0].Type)
	assert.Equal(t, "Missing author information for Sunset (Image) inside Photo (H5P.Image).", msgs[0].Summary)
	assert.Equal(t, "images/a.png", msgs[0].Details.Path)
	assert.Equal(t, "Sunset", msgs[0].Details.Title)
}

func TestLicense_UnknownNodesSkipped(t *testing.T) {
	tree := content.NewTree()
	id := tree.AddNode(content.NoNode, &content.Node{SubContentID: "x"})
	runLicense(t, tree, nil)
	assert.Empty(t, tree.Node(id).Messages())
}

func TestLicense_ForbiddenByPolicy(t *testing.T) {
	ctx := context.Background()
	policy, err := NewLicensePolicy(ctx, []string{"CC BY-NC", "CC BY-NC-SA"})
	require.NoError(t, err)

	tree := content.NewTree()
	root := tree.AddNode(content.NoNode, &content.Node{SubContentID: "root", Library: content.ParseLibrary("H5P.Column 1.16"),
		Metadata: content.Metadata{Title: "Course", License: "CC0 1.0"}})
	child := tree.AddNode(root, &content.Node{SubContentID: "child", Library: content.ParseLibrary("H5P.Image 1.1"),
		Metadata: content.Metadata{Title: "Map", License: "CC BY-NC", LicenseVersion: "4.0", Source: "s", Authors: []content.Author{{Name: "Ada"}}}})
	f := image("images/map.png", "file", "image/png", 1, 1)
	f.Metadata = content.FileMetadata{License: "CC BY-NC-SA", LicenseVersion: "4.0", Author: "Ada", Source: "s"}
	require.True(t, tree.AddFile(child, f))

	runLicense(t, tree, NewEnv(nil, nil, policy, DefaultLanguage))

	assert.Empty(t, tree.Node(root).Messages())
	msgs := tree.Node(child).Messages()
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, TypeForbiddenLicense, m.Type)
		assert.Equal(t, content.LevelError, m.Level)
	}
	assert.Equal(t, "Forbidden license used by Map (H5P.Image).", msgs[0].Summary)
	assert.Equal(t, "License CC BY-NC is not allowed by policy", msgs[0].Description[1])
	assert.Equal(t, "images/map.png", msgs[1].Details.Path)
}

func TestLicensePolicy_IgnoresCase(t *testing.T) {
	ctx := context.Background()
	policy, err := NewLicensePolicy(ctx, []string{"cc by-nc"})
	require.NoError(t, err)
	assert.Contains(t, policy.Module(), "lower(")

	violations, err := policy.Evaluate(ctx, []PolicySubject{
		{Index: 0, License: "CC BY-NC"},
		{Index: 1, License: "CC BY"},
	})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, 0, violations[0].Index)
}

func TestLoadLicensePolicy(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("licenses:\n  forbidden:\n    - C\n"), 0o644))
	p, err := LoadLicensePolicy(ctx, yamlPath)
	require.NoError(t, err)
	assert.Contains(t, p.Module(), `forbidden := ["C"]`)

	violations, err := p.Evaluate(ctx, []PolicySubject{{Index: 0, License: "CC BY"}, {Index: 1, License: "C"}})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, 1, violations[0].Index)

	regoPath := filepath.Join(dir, "custom.rego")
	require.NoError(t, os.WriteFile(regoPath, []byte(`package caretaker.licenses

deny contains {"index": item.index, "msg": "files must be CC0"} if {
  item := input.items[_]
  item.kind == "file"
  item.license != "CC0 1.0"
}
`), 0o644))
	p, err = LoadLicensePolicy(ctx, regoPath)
	require.NoError(t, err)
	violations, err = p.Evaluate(ctx, []PolicySubject{{Index: 0, Kind: "content", License: "CC BY"}, {Index: 1, Kind: "file", License: "CC BY"}})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "files must be CC0", violations[0].Message)

	broken := filepath.Join(dir, "broken.rego")
	require.NoError(t, os.WriteFile(broken, []byte("package caretaker.licenses\ndeny contains x if {"), 0o644))
	_, err = LoadLicensePolicy(ctx, broken)
	assert.Error(t, err)
}
