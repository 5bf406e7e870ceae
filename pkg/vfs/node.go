// Package vfs provides the read-only decoy filesystem presented to
// authenticated sessions.
//
// A Tree is built once and never mutated afterwards, so it can be shared by
// every session without locking. Each session navigates it through its own
// Cursor.
package vfs

import "fmt"

// Kind distinguishes directories from files.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is a directory or a file. Directories own their children, which keep
// the order they were added in.
type Node struct {
	name     string
	kind     Kind
	content  string
	children []*Node
	index    map[string]int
}

// NewDirectory creates an empty directory node.
func NewDirectory(name string) *Node {
	return &Node{name: name, kind: KindDirectory, index: make(map[string]int)}
}

// NewFile creates a file node with fixed content.
func NewFile(name, content string) *Node {
	return &Node{name: name, kind: KindFile, content: content}
}

// Name returns the entry name of the node.
func (n *Node) Name() string { return n.name }

// Kind returns the node kind.
func (n *Node) Kind() Kind { return n.kind }

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.kind == KindDirectory }

// Content returns the content of a file node, "" for directories.
func (n *Node) Content() string { return n.content }

// Add appends child to a directory. Names must be unique within a directory.
// Add is only meant for tree construction; nodes reachable from a published
// Tree must not be modified.
func (n *Node) Add(child *Node) error {
	if !n.IsDir() {
		return fmt.Errorf("add %q to %q: %w", child.name, n.name, ErrNotADirectory)
	}
	if child.name == "" || child.name == "." || child.name == ".." {
		return fmt.Errorf("add %q to %q: %w: reserved name", child.name, n.name, ErrInvalidTree)
	}
	if _, exists := n.index[child.name]; exists {
		return fmt.Errorf("add %q to %q: %w: duplicate name", child.name, n.name, ErrInvalidTree)
	}
	n.index[child.name] = len(n.children)
	n.children = append(n.children, child)
	return nil
}

// Child returns the named child of a directory.
func (n *Node) Child(name string) (*Node, bool) {
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return n.children[i], true
}

// Names returns the child names in insertion order.
func (n *Node) Names() []string {
	names := make([]string, len(n.children))
	for i, c := range n.children {
		names[i] = c.name
	}
	return names
}

// Children returns the child nodes in insertion order.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}
