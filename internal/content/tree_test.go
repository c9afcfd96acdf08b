/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package content

import (
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSample creates root -> (a -> (a1), b) with one file on a1
func buildSample(t *testing.T) (*Tree, map[string]NodeID) {
	t.Helper()
	tree := NewTree()
	ids := map[string]NodeID{}
	ids["root"] = tree.AddNode(NoNode, &Node{SubContentID: "root", Library: ParseLibrary("H5P.Column 1.16"), Metadata: Metadata{Title: "Course"}})
	ids["a"] = tree.AddNode(ids["root"], &Node{SubContentID: "a", Library: ParseLibrary("H5P.ARScavenger 1.3")})
	ids["a1"] = tree.AddNode(ids["a"], &Node{SubContentID: "a1", Library: ParseLibrary("H5P.Image 1.1"), Metadata: Metadata{Title: "Cover"}})
	ids["b"] = tree.AddNode(ids["root"], &Node{SubContentID: "b"})
	require.True(t, tree.AddFile(ids["a1"], &FileReference{ID: "f1", Type: FileTypeImage, Path: "images/a.png"}))
	return tree, ids
}

func collectIDs(tree *Tree) []string {
	var out []string
	for n := range tree.Nodes() {
		out = append(out, n.SubContentID)
	}
	return out
}

func TestTree_NodesPreOrder(t *testing.T) {
	tree, _ := buildSample(t)
	assert.Equal(t, []string{"root", "a", "a1", "b"}, collectIDs(tree))
}

func TestTree_NodesIdempotent(t *testing.T) {
	tree, _ := buildSample(t)
	first := collectIDs(tree)
	second := collectIDs(tree)
	assert.Equal(t, first, second)
}

func TestTree_NodesEarlyStop(t *testing.T) {
	tree, _ := buildSample(t)
	count := 0
	for range tree.Nodes() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestTree_FilesAndOwner(t *testing.T) {
	tree, ids := buildSample(t)
	var files []*FileReference
	for f := range tree.Files() {
		files = append(files, f)
	}
	require.Len(t, files, 1)
	assert.Equal(t, ids["a1"], files[0].Owner)
	assert.False(t, tree.AddFile(NodeID(42), &FileReference{}))
}

func TestTree_Ancestor(t *testing.T) {
	tree, ids := buildSample(t)
	assert.Equal(t, "a1", tree.Ancestor(ids["a1"], 0).SubContentID)
	assert.Equal(t, "a", tree.Ancestor(ids["a1"], 1).SubContentID)
	assert.Equal(t, "root", tree.Ancestor(ids["a1"], 2).SubContentID)
	assert.Nil(t, tree.Ancestor(ids["a1"], 3))
	assert.Nil(t, tree.Parent(ids["root"]))
}

func TestTree_Describe(t *testing.T) {
	tree, ids := buildSample(t)
	assert.Equal(t, "Cover (H5P.Image)", tree.Describe(ids["a1"], NodeDescription))
	assert.Equal(t, "Untitled (H5P.ARScavenger) in Course", tree.Describe(ids["a"], "{title} ({machineName}) in {parentTitle}"))
	assert.Equal(t, "Untitled (unknown)", tree.Describe(ids["b"], NodeDescription))

	f := tree.Node(ids["a1"]).Files()[0]
	assert.Equal(t, "Untitled (Image)", tree.DescribeFile(f, FileDescription))
	assert.Equal(t, "Cover/H5P.Image", tree.DescribeFile(f, "{parentTitle}/{parentMachineName}"))
}

func TestTree_AttachMessageConcurrent(t *testing.T) {
	tree, ids := buildSample(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree.AttachMessage(ids["a"], Message{Category: CategoryLicense, Type: "missingLicense"})
		}()
	}
	wg.Wait()
	assert.Len(t, tree.Node(ids["a"]).Messages(), 50)
	assert.Empty(t, tree.Node(ids["b"]).Messages())
}

func TestReportFile_DelegatesToOwner(t *testing.T) {
	tree, ids := buildSample(t)
	f := tree.Node(ids["a1"]).Files()[0]
	ReportFile(tree, f, Message{Type: "imageSize"})
	msgs := tree.Node(ids["a1"]).Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "imageSize", msgs[0].Type)
}

func TestNode_ChildrenCopy(t *testing.T) {
	tree, ids := buildSample(t)
	children := tree.Node(ids["root"]).Children()
	children[0] = NodeID(99)
	assert.True(t, slices.Equal([]NodeID{ids["a"], ids["b"]}, tree.Node(ids["root"]).Children()))
}
