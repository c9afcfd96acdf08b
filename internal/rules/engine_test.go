/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/fulmenhq/caretaker/internal/content"
)

// sampleTree has findings for all three analyzers on the same node
func sampleTree() (*content.Tree, content.NodeID, content.NodeID) {
	tree := content.NewTree()
	root := tree.AddNode(content.NoNode, &content.Node{
		SubContentID: "root",
		Library:      content.ParseLibrary("H5P.Column 1.16"),
		Metadata:     content.Metadata{Title: "Course", License: "CC0 1.0"},
	})
	img := tree.AddNode(root, &content.Node{
		SubContentID: "img",
		Library:      content.ParseLibrary("H5P.ImageHotspots 1.10"),
		Params:       map[string]any{},
	})
	tree.AddFile(img, image("images/icon.png", "iconImage", "image/png", 100, 50))
	return tree, root, img
}

func messageKeys(msgs []content.Message) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, string(m.Category)+"/"+m.Type)
	}
	return out
}

func TestEngine_SerialAndParallelAgree(t *testing.T) {
	serialTree, _, serialImg := sampleTree()
	parallelTree, _, parallelImg := sampleTree()

	engine := NewEngine(nil)
	if _, err := engine.Run(context.Background(), serialTree, nil, Config{}); err != nil {
		t.Fatalf("serial run failed: %v", err)
	}
	runs, err := engine.Run(context.Background(), parallelTree, nil, Config{Concurrency: 3})
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	want := []string{
		"accessibility/missingTitle",
		"license/missingLicense",
		"efficiency/imageResolution",
	}
	got := messageKeys(serialTree.Node(serialImg).Messages())
	if len(got) != len(want) {
		t.Fatalf("serial messages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("serial message %d = %s, want %s", i, got[i], want[i])
		}
	}

	parallel := messageKeys(parallelTree.Node(parallelImg).Messages())
	if len(parallel) != len(got) {
		t.Fatalf("parallel messages = %v, serial = %v", parallel, got)
	}
	for i := range got {
		if parallel[i] != got[i] {
			t.Fatalf("parallel order differs at %d: %s vs %s", i, parallel[i], got[i])
		}
	}

	if len(runs) != 3 || runs[0].Category != content.CategoryAccessibility || runs[2].Category != content.CategoryEfficiency {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}

func TestEngine_CategoryFilter(t *testing.T) {
	tree, root, img := sampleTree()
	runs, err := NewEngine(nil).Run(context.Background(), tree, nil, Config{Categories: []content.Category{content.CategoryEfficiency, "bogus"}})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Messages != 1 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if len(tree.Node(root).Messages()) != 0 {
		t.Fatal("root should have no efficiency findings")
	}
	if got := messageKeys(tree.Node(img).Messages()); len(got) != 1 || got[0] != "efficiency/imageResolution" {
		t.Fatalf("unexpected messages: %v", got)
	}
}

func TestEngine_Cancelled(t *testing.T) {
	tree, _, _ := sampleTree()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(nil).Run(ctx, tree, nil, Config{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	for n := range tree.Nodes() {
		if len(n.Messages()) != 0 {
			t.Fatalf("cancelled run must not attach partial results, node %s has %d", n.SubContentID, len(n.Messages()))
		}
	}
}

type failingAnalyzer struct{}

func (failingAnalyzer) Category() content.Category { return "broken" }
func (failingAnalyzer) Analyze(context.Context, *content.Tree, *Env, content.Sink) error {
	return errors.New("boom")
}

func TestEngine_AnalyzerError(t *testing.T) {
	reg := DefaultRegistry()
	reg.Register(failingAnalyzer{})

	tree, _, _ := sampleTree()
	_, err := NewEngine(reg).Run(context.Background(), tree, nil, Config{Concurrency: 2})
	if err == nil || err.Error() != "broken analysis failed: boom" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistry_CategoriesInPriorityOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(EfficiencyAnalyzer{})
	reg.Register(LicenseAnalyzer{})
	reg.Register(AccessibilityAnalyzer{})

	got := reg.Categories()
	want := []content.Category{content.CategoryAccessibility, content.CategoryLicense, content.CategoryEfficiency}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Categories() = %v, want %v", got, want)
		}
	}

	if err := reg.Priorities().ParsePriorityString("efficiency=highest"); err != nil {
		t.Fatalf("ParsePriorityString: %v", err)
	}
	if reg.Categories()[0] != content.CategoryEfficiency {
		t.Fatalf("custom priority not applied: %v", reg.Categories())
	}
}

func TestPriorityManager_CustomWinsTies(t *testing.T) {
	pm := NewPriorityManager()
	if err := pm.ParsePriorityString("efficiency=highest,license=high"); err != nil {
		t.Fatalf("ParsePriorityString: %v", err)
	}

	got := pm.AllCategories()
	want := []content.Category{content.CategoryEfficiency, content.CategoryAccessibility, content.CategoryLicense}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AllCategories() = %v, want %v", got, want)
		}
	}
}

func TestPriorityManager_ParseErrors(t *testing.T) {
	pm := NewPriorityManager()
	for _, bad := range []string{"license", "license=9", " , "} {
		if err := pm.ParsePriorityString(bad); err == nil {
			t.Errorf("ParsePriorityString(%q) expected error", bad)
		}
	}
	if err := pm.ParsePriorityString("license=1,license=default"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pm.Priority(content.CategoryLicense) != DefaultPriorities[content.CategoryLicense] {
		t.Fatal("default keyword should restore the built-in priority")
	}
}
