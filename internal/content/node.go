/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package content

import (
	"strconv"
	"strings"
)

// Author is one entry of a node's author list
type Author struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Metadata is the display and license information of a node
type Metadata struct {
	Title          string   `json:"title,omitempty"`
	Authors        []Author `json:"authors,omitempty"`
	License        string   `json:"license,omitempty"`
	LicenseVersion string   `json:"licenseVersion,omitempty"`
	LicenseExtras  string   `json:"licenseExtras,omitempty"`
	Source         string   `json:"source,omitempty"`
	YearFrom       string   `json:"yearFrom,omitempty"`
	YearTo         string   `json:"yearTo,omitempty"`
}

// ParseMetadata reads a metadata object from a generic document.
// Both the content metadata and the package manifest use this layout.
func ParseMetadata(v any) Metadata {
	obj, ok := v.(map[string]any)
	if !ok {
		return Metadata{}
	}

	md := Metadata{
		Title:          stringField(obj, "title"),
		License:        stringField(obj, "license"),
		LicenseVersion: stringField(obj, "licenseVersion"),
		LicenseExtras:  stringField(obj, "licenseExtras"),
		Source:         stringField(obj, "source"),
		YearFrom:       scalarString(obj["yearFrom"]),
		YearTo:         scalarString(obj["yearTo"]),
	}

	if authors, ok := obj["authors"].([]any); ok {
		for _, a := range authors {
			entry, ok := a.(map[string]any)
			if !ok {
				continue
			}
			name := strings.TrimSpace(stringField(entry, "name"))
			if name == "" {
				continue
			}
			md.Authors = append(md.Authors, Author{Name: name, Role: stringField(entry, "role")})
		}
	}

	return md
}

// Node is one content-type instance in the content tree
type Node struct {
	ID            NodeID         `json:"-"`
	SubContentID  string         `json:"subContentId"`
	Library       Library        `json:"library"`
	Metadata      Metadata       `json:"metadata"`
	Params        map[string]any `json:"-"`
	SemanticsPath string         `json:"semanticsPath"`

	parent   NodeID
	children []NodeID
	files    []*FileReference
	messages []Message
}

// Title returns the metadata title or "Untitled"
func (n *Node) Title() string {
	if t := strings.TrimSpace(n.Metadata.Title); t != "" {
		return t
	}
	return "Untitled"
}

// MachineName returns the unversioned machine name, empty when unknown
func (n *Node) MachineName() string {
	return n.Library.MachineName
}

// Parent returns the parent id, NoNode for roots
func (n *Node) Parent() NodeID { return n.parent }

// Children returns the child ids in discovery order
func (n *Node) Children() []NodeID {
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// Files returns the owned file references in discovery order
func (n *Node) Files() []*FileReference {
	out := make([]*FileReference, len(n.files))
	copy(out, n.files)
	return out
}

// Messages returns a copy of the messages attached so far
func (n *Node) Messages() []Message {
	out := make([]Message, len(n.messages))
	copy(out, n.messages)
	return out
}

// Param looks up a dotted path ("behaviour.imageHeight", "cards[0].image") in the params
func (n *Node) Param(path string) (any, bool) {
	return Lookup(n.Params, path)
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}
