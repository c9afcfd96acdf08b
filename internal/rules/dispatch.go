/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package rules

import (
	"context"

	"github.com/fulmenhq/caretaker/internal/content"
)

// Generic is the dispatch key that matches every node with a known machine name
const Generic = "*"

// NodeCheck inspects one node and reports through sink
type NodeCheck func(tree *content.Tree, n *content.Node, env *Env, sink content.Sink)

// Dispatch maps machine names to the checks run for nodes of that type
type Dispatch map[string][]NodeCheck

// Run applies the table to every node in pre-order. Nodes without a machine
// name, or with one the table does not mention, are skipped.
func (d Dispatch) Run(ctx context.Context, tree *content.Tree, env *Env, sink content.Sink) error {
	for n := range tree.Nodes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := n.MachineName()
		if name == "" {
			continue
		}
		for _, check := range d[name] {
			check(tree, n, env, sink)
		}
		for _, check := range d[Generic] {
			check(tree, n, env, sink)
		}
	}
	return nil
}
