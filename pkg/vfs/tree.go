package vfs

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tree is an immutable directory hierarchy. Its root is an unnamed directory.
type Tree struct {
	root *Node
}

// NewTree wraps root, which must be a directory.
func NewTree(root *Node) (*Tree, error) {
	if root == nil || !root.IsDir() {
		return nil, fmt.Errorf("%w: root must be a directory", ErrInvalidTree)
	}
	return &Tree{root: root}, nil
}

// Root returns the root directory.
func (t *Tree) Root() *Node {
	return t.root
}

// Lookup resolves a sequence of names starting at the root.
func (t *Tree) Lookup(parts []string) (*Node, error) {
	n := t.root
	for i, name := range parts {
		if !n.IsDir() {
			return nil, &PathError{Op: "lookup", Path: joinPath(parts[:i]), Err: ErrNotADirectory}
		}
		child, ok := n.Child(name)
		if !ok {
			return nil, &PathError{Op: "lookup", Path: joinPath(parts[:i+1]), Err: ErrNotFound}
		}
		n = child
	}
	return n, nil
}

// Stats counts the directories (root excluded) and files of the tree.
func (t *Tree) Stats() (dirs, files int) {
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.children {
			if c.IsDir() {
				dirs++
				walk(c)
			} else {
				files++
			}
		}
	}
	walk(t.root)
	return dirs, files
}

// DefaultTree returns the built-in decoy layout.
func DefaultTree() *Tree {
	dir := func(name string, children ...*Node) *Node {
		d := NewDirectory(name)
		for _, c := range children {
			if err := d.Add(c); err != nil {
				panic(err)
			}
		}
		return d
	}

	return &Tree{root: dir("",
		dir("home",
			dir("user",
				NewFile("file1.txt", "This is a test file. Content here is for demo purposes."),
				NewFile("file2.log", "Log file sample content."),
			),
			NewFile("readme.txt", "Welcome to the IoT device. This is a fake file system."),
		),
		dir("etc",
			NewFile("config.cfg", "Configuration settings go here."),
			NewFile("hosts", "127.0.0.1 localhost\n192.168.1.1 router"),
		),
		dir("var",
			dir("log",
				NewFile("syslog", "System log placeholder."),
				NewFile("error.log", "Error log content placeholder."),
			),
		),
	)}
}

// LoadTree reads a tree definition from a YAML file. See ParseTree.
func LoadTree(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}
	t, err := ParseTree(data)
	if err != nil {
		return nil, fmt.Errorf("tree file %s: %w", path, err)
	}
	return t, nil
}

// ParseTree builds a tree from a YAML mapping. Nested mappings are
// directories, string scalars are file contents and an empty value is an
// empty directory. Document order becomes listing order:
//
//	home:
//	  readme.txt: "Welcome"
//	  user: {}
func ParseTree(data []byte) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTree, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidTree)
	}

	root := NewDirectory("")
	if err := fillDirectory(root, doc.Content[0], ""); err != nil {
		return nil, err
	}
	return &Tree{root: root}, nil
}

func fillDirectory(dir *Node, m *yaml.Node, at string) error {
	if m.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: %s must be a mapping", ErrInvalidTree, m.Line, displayPath(at))
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		key, value := m.Content[i], m.Content[i+1]
		if key.Kind != yaml.ScalarNode || strings.Contains(key.Value, "/") {
			return fmt.Errorf("%w: line %d: invalid entry name %q", ErrInvalidTree, key.Line, key.Value)
		}
		name := key.Value
		path := at + "/" + name

		var child *Node
		switch {
		case value.Kind == yaml.MappingNode:
			child = NewDirectory(name)
			if err := fillDirectory(child, value, path); err != nil {
				return err
			}
		case value.Kind == yaml.ScalarNode && value.Tag == "!!null":
			child = NewDirectory(name)
		case value.Kind == yaml.ScalarNode:
			child = NewFile(name, value.Value)
		default:
			return fmt.Errorf("%w: line %d: %s must be a mapping or a string", ErrInvalidTree, value.Line, path)
		}

		if err := dir.Add(child); err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
	}
	return nil
}

// MarshalYAML encodes the tree in the format accepted by ParseTree.
func (t *Tree) MarshalYAML() (any, error) {
	return encodeDirectory(t.root), nil
}

func encodeDirectory(dir *Node) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, c := range dir.children {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.name}
		var value *yaml.Node
		if c.IsDir() {
			value = encodeDirectory(c)
			if len(c.children) == 0 {
				value.Style = yaml.FlowStyle
			}
		} else {
			value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.content}
			if strings.Contains(c.content, "\n") {
				value.Style = yaml.LiteralStyle
			}
		}
		m.Content = append(m.Content, key, value)
	}
	return m
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

func joinPath(parts []string) string {
	return "/" + strings.Join(parts, "/")
}
