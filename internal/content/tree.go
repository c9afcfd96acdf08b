/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package content

import (
	"iter"
	"strings"
	"sync"
)

// NodeID indexes a node in its tree's node table
type NodeID int

// NoNode is the parent of root nodes
const NoNode NodeID = -1

// Sink receives diagnostic messages for a node
type Sink interface {
	AttachMessage(id NodeID, msg Message)
}

// Tree owns all content nodes of one package
type Tree struct {
	mu    sync.Mutex
	nodes []*Node
	roots []NodeID
}

// NewTree creates an empty tree
func NewTree() *Tree {
	return &Tree{}
}

// AddNode inserts n below parent (NoNode for a root) and returns its id
func (t *Tree) AddNode(parent NodeID, n *Node) NodeID {
	id := NodeID(len(t.nodes))
	n.ID = id
	n.parent = NoNode
	t.nodes = append(t.nodes, n)

	if p := t.Node(parent); p != nil {
		n.parent = parent
		p.children = append(p.children, id)
	} else {
		t.roots = append(t.roots, id)
	}
	return id
}

// AddFile hands ownership of f to the node with the given id
func (t *Tree) AddFile(owner NodeID, f *FileReference) bool {
	n := t.Node(owner)
	if n == nil {
		return false
	}
	f.Owner = owner
	n.files = append(n.files, f)
	return true
}

// Node returns the node for id or nil
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Roots returns the root node ids
func (t *Tree) Roots() []NodeID {
	out := make([]NodeID, len(t.roots))
	copy(out, t.roots)
	return out
}

// Len returns the number of nodes
func (t *Tree) Len() int { return len(t.nodes) }

// Parent returns the parent node of id, nil for roots
func (t *Tree) Parent(id NodeID) *Node {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	return t.Node(n.parent)
}

// Ancestor walks depth steps up from id. Depth 0 is the node itself.
func (t *Tree) Ancestor(id NodeID, depth int) *Node {
	n := t.Node(id)
	for i := 0; i < depth && n != nil; i++ {
		n = t.Node(n.parent)
	}
	return n
}

// Nodes yields all nodes in pre-order. The sequence can be ranged over repeatedly.
func (t *Tree) Nodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		stack := make([]NodeID, 0, len(t.roots))
		for i := len(t.roots) - 1; i >= 0; i-- {
			stack = append(stack, t.roots[i])
		}

		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			n := t.nodes[id]
			if !yield(n) {
				return
			}
			for i := len(n.children) - 1; i >= 0; i-- {
				stack = append(stack, n.children[i])
			}
		}
	}
}

// Files yields every file reference, node by node in pre-order
func (t *Tree) Files() iter.Seq[*FileReference] {
	return func(yield func(*FileReference) bool) {
		for n := range t.Nodes() {
			for _, f := range n.files {
				if !yield(f) {
					return
				}
			}
		}
	}
}

// AttachMessage appends msg to the node's message list. Safe for concurrent use.
func (t *Tree) AttachMessage(id NodeID, msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := t.Node(id); n != nil {
		n.messages = append(n.messages, msg)
	}
}

// Describe fills a node description template. Supported placeholders are
// {title}, {machineName}, {parentTitle} and {parentMachineName}.
func (t *Tree) Describe(id NodeID, template string) string {
	n := t.Node(id)
	if n == nil {
		return template
	}

	parentTitle, parentMachineName := "", ""
	if p := t.Parent(id); p != nil {
		parentTitle, parentMachineName = p.Title(), displayName(p)
	}

	return strings.NewReplacer(
		"{title}", n.Title(),
		"{machineName}", displayName(n),
		"{parentTitle}", parentTitle,
		"{parentMachineName}", parentMachineName,
	).Replace(template)
}

// DescribeFile fills a file description template. Supported placeholders are
// {title}, {type}, {parentTitle} and {parentMachineName}; the parent is the owning node.
func (t *Tree) DescribeFile(f *FileReference, template string) string {
	parentTitle, parentMachineName := "", ""
	if owner := t.Node(f.Owner); owner != nil {
		parentTitle, parentMachineName = owner.Title(), displayName(owner)
	}

	return strings.NewReplacer(
		"{title}", f.Title(),
		"{type}", f.Type.Label(),
		"{parentTitle}", parentTitle,
		"{parentMachineName}", parentMachineName,
	).Replace(template)
}

// Default description templates
const (
	NodeDescription = "{title} ({machineName})"
	FileDescription = "{title} ({type})"
)

// UnknownMachineName is shown for nodes whose content type could not be resolved
const UnknownMachineName = "unknown"

func displayName(n *Node) string {
	if n.Library.Known() {
		return n.Library.MachineName
	}
	return UnknownMachineName
}

// ReportFile forwards a finding about f to its owning node
func ReportFile(s Sink, f *FileReference, msg Message) {
	s.AttachMessage(f.Owner, msg)
}
