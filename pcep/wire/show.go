/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire

import (
	"encoding/json"
	"strings"
)

// Tree is a format-independent rendering of a decoded structure.
type Tree struct {
	Label    string  `json:"label"`
	Value    string  `json:"value,omitempty"`
	Children []*Tree `json:"children,omitempty"`
}

// NewTree creates a tree node.
func NewTree(label string, value string) *Tree {
	return &Tree{Label: label, Value: value}
}

// Add appends a leaf and returns the receiver.
func (t *Tree) Add(label string, value string) *Tree {
	t.Children = append(t.Children, NewTree(label, value))
	return t
}

// Attach appends a subtree and returns the receiver.
func (t *Tree) Attach(child *Tree) *Tree {
	if child != nil {
		t.Children = append(t.Children, child)
	}
	return t
}

// Find returns the first direct child with the given label.
func (t *Tree) Find(label string) *Tree {
	for _, c := range t.Children {
		if c.Label == label {
			return c
		}
	}
	return nil
}

// String renders the tree as indented text.
func (t *Tree) String() string {
	var sb strings.Builder
	t.write(&sb, 0)
	return sb.String()
}

func (t *Tree) write(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(t.Label)
	if t.Value != "" {
		sb.WriteString(": ")
		sb.WriteString(t.Value)
	}
	sb.WriteByte('\n')
	for _, c := range t.Children {
		c.write(sb, depth+1)
	}
}

// JSON renders the tree as JSON.
func (t *Tree) JSON() []byte {
	ret, _ := json.Marshal(t)
	return ret
}
