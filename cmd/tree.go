/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/fulmenhq/caretaker/internal/builder"
	"github.com/fulmenhq/caretaker/internal/content"
	"github.com/fulmenhq/caretaker/internal/h5p"
	"github.com/fulmenhq/caretaker/pkg/exitcode"
)

type treeOptions struct {
	files    bool
	jsonOut  bool
	maxDepth int
}

func newTreeCommand() *cobra.Command {
	opts := &treeOptions{}
	cmd := &cobra.Command{
		Use:   "tree <package>",
		Short: "Show the content tree of a package",
		Long: `Show the content nodes of a package as the analyzers see them: library,
title, sub-content id and, optionally, the media files each node references.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.files, "files", true, "List media files below their nodes")
	cmd.Flags().BoolVar(&opts.jsonOut, "json-output", false, "Print the tree as JSON")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", builder.DefaultMaxDepth, "Maximum content nesting depth")
	return cmd
}

func runTree(cmd *cobra.Command, opts *treeOptions, target string) error {
	pkg, err := h5p.Open(cmd.Context(), target)
	if err != nil {
		return classifyOpenError(err)
	}
	tree, err := builder.Build(pkg.Document(), pkg.Semantics,
		builder.WithMedia(pkg.Media),
		builder.WithMaxDepth(opts.maxDepth))
	if err != nil {
		return exitcode.WithCode(exitcode.ValidationError, fmt.Errorf("building content tree: %w", err))
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		return writeTreeJSON(out, tree)
	}
	writeTree(out, tree, pkg.Media, opts.files)
	return nil
}

// treeNode is the JSON view of a content node
type treeNode struct {
	*content.Node
	Files    []*content.FileReference `json:"files,omitempty"`
	Children []treeNode               `json:"children,omitempty"`
}

func jsonNode(tree *content.Tree, id content.NodeID) treeNode {
	n := tree.Node(id)
	out := treeNode{Node: n, Files: n.Files()}
	for _, c := range n.Children() {
		out.Children = append(out.Children, jsonNode(tree, c))
	}
	return out
}

func writeTreeJSON(w io.Writer, tree *content.Tree) error {
	roots := make([]treeNode, 0, len(tree.Roots()))
	for _, id := range tree.Roots() {
		roots = append(roots, jsonNode(tree, id))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(roots); err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}
	return nil
}

func writeTree(w io.Writer, tree *content.Tree, media content.MediaIndex, files bool) {
	pr := message.NewPrinter(language.English)

	var walk func(id content.NodeID, prefix string, last bool, root bool)
	walk = func(id content.NodeID, prefix string, last bool, root bool) {
		n := tree.Node(id)
		branch, childPrefix := "", ""
		if !root {
			branch, childPrefix = "├── ", prefix+"│   "
			if last {
				branch, childPrefix = "└── ", prefix+"    "
			}
		}

		lib := n.Library.String()
		if lib == "" {
			lib = "(unknown library)"
		}
		_, _ = fmt.Fprintf(w, "%s%s%s %q [%s]\n", prefix, branch, lib, n.Title(), n.SubContentID)

		if files {
			for _, f := range n.Files() {
				_, _ = fmt.Fprintf(w, "%s  · %s %s%s\n", childPrefix, strings.ToLower(f.Type.Label()), f.Path, fileFacts(pr, media, f))
			}
		}

		children := n.Children()
		for i, c := range children {
			walk(c, childPrefix, i == len(children)-1, false)
		}
	}

	for _, id := range tree.Roots() {
		walk(id, "", true, true)
	}
}

func fileFacts(pr *message.Printer, media content.MediaIndex, f *content.FileReference) string {
	var parts []string
	if w, ok := f.Dimensions.Width(); ok {
		h, _ := f.Dimensions.Height()
		parts = append(parts, fmt.Sprintf("%dx%d", w, h))
	}
	if size, ok := media.Size(f.Path); ok {
		parts = append(parts, pr.Sprintf("%d bytes", size))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
