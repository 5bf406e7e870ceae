package vfs

import (
	"fmt"
	"strings"
)

// Cursor is a session's position in a Tree: the directory names leading from
// the root to the current directory. Its first component is fixed, so a
// cursor never becomes empty and never leaves the subtree it started in.
//
// A Cursor belongs to a single session and is not safe for concurrent use.
type Cursor struct {
	tree  *Tree
	parts []string
}

// NewCursor positions a cursor at start, an absolute slash separated path
// naming a directory below the root.
func NewCursor(tree *Tree, start string) (*Cursor, error) {
	parts := splitPath(start)
	if len(parts) == 0 {
		return nil, &PathError{Op: "cursor", Path: start, Err: fmt.Errorf("%w: start path must name a directory below the root", ErrInvalidTree)}
	}

	n, err := tree.Lookup(parts)
	if err != nil {
		return nil, err
	}
	if !n.IsDir() {
		return nil, &PathError{Op: "cursor", Path: start, Err: ErrNotADirectory}
	}
	return &Cursor{tree: tree, parts: parts}, nil
}

// ResolveCurrent returns the directory the cursor points at.
func (c *Cursor) ResolveCurrent() (*Node, error) {
	n, err := c.tree.Lookup(c.parts)
	if err != nil {
		return nil, err
	}
	if !n.IsDir() {
		return nil, &PathError{Op: "resolve", Path: c.String(), Err: ErrNotADirectory}
	}
	return n, nil
}

// List returns the entry names of the current directory in insertion order.
func (c *Cursor) List() ([]string, error) {
	dir, err := c.ResolveCurrent()
	if err != nil {
		return nil, err
	}
	return dir.Names(), nil
}

// ChangeDirectory moves into the named child directory, or one level up for
// "..". Moving up from the first component is a no-op.
func (c *Cursor) ChangeDirectory(target string) error {
	if target == ".." {
		if len(c.parts) > 1 {
			c.parts = c.parts[:len(c.parts)-1]
		}
		return nil
	}

	dir, err := c.ResolveCurrent()
	if err != nil {
		return err
	}
	child, ok := dir.Child(target)
	if !ok {
		return &PathError{Op: "cd", Path: c.join(target), Err: ErrNotFound}
	}
	if !child.IsDir() {
		return &PathError{Op: "cd", Path: c.join(target), Err: ErrNotADirectory}
	}

	c.parts = append(c.parts, target)
	return nil
}

// ReadFile returns the content of the named file in the current directory.
func (c *Cursor) ReadFile(name string) (string, error) {
	dir, err := c.ResolveCurrent()
	if err != nil {
		return "", err
	}
	child, ok := dir.Child(name)
	if !ok {
		return "", &PathError{Op: "cat", Path: c.join(name), Err: ErrNotFound}
	}
	if child.IsDir() {
		return "", &PathError{Op: "cat", Path: c.join(name), Err: ErrNotAFile}
	}
	return child.Content(), nil
}

// Components returns a copy of the cursor's path components.
func (c *Cursor) Components() []string {
	return append([]string(nil), c.parts...)
}

// String returns the absolute path of the current directory, e.g. "/home/user".
func (c *Cursor) String() string {
	return joinPath(c.parts)
}

func (c *Cursor) join(name string) string {
	return c.String() + "/" + name
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			parts = append(parts, s)
		}
	}
	return parts
}
