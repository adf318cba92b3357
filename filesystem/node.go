package filesystem

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v4"
)

// Node is a single namespace entry: either a [*Dir] or a [*File].
// The set of implementations is closed; switch on the concrete type.
type Node interface {
	isNode()
}

// Dir is a directory node holding named children.
// Names are unique and never contain "/".
type Dir struct {
	children *xsync.Map[string, Node] // thread-safe map of child nodes by name
}

// File is a text file node
type File struct {
	content string
}

func (*Dir) isNode()  {}
func (*File) isNode() {}

// NewDir creates an empty directory
func NewDir() *Dir {
	return &Dir{children: xsync.NewMap[string, Node]()}
}

// NewFile creates a file holding content
func NewFile(content string) *File {
	return &File{content: content}
}

// AddChild stores child under name, silently replacing any existing entry.
// Returns true if an entry was replaced.
func (d *Dir) AddChild(name string, child Node) bool {
	_, replaced := d.children.Load(name)
	d.children.Store(name, child)
	return replaced
}

// GetChild returns a child node by name
func (d *Dir) GetChild(name string) (child Node, ok bool) {
	return d.children.Load(name)
}

// RemoveChild detaches the named child and returns it
func (d *Dir) RemoveChild(name string) (Node, bool) {
	return d.children.LoadAndDelete(name)
}

// Len returns the number of direct children
func (d *Dir) Len() int {
	return d.children.Size()
}

// Names returns the child names in lexical order
func (d *Dir) Names() []string {
	names := make([]string, 0, d.children.Size())
	d.children.Range(func(name string, _ Node) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Range calls fn for each child in lexical name order until fn returns false
func (d *Dir) Range(fn func(name string, child Node) bool) {
	for _, name := range d.Names() {
		child, ok := d.children.Load(name)
		if !ok {
			continue
		}
		if !fn(name, child) {
			return
		}
	}
}

// Content returns the file's text
func (f *File) Content() string {
	return f.content
}

// SetContent replaces the file's text
func (f *File) SetContent(content string) {
	f.content = content
}

// Clone returns a deep copy of n. Every descendant is newly allocated so
// mutating the copy never affects the original.
func Clone(n Node) Node {
	switch n := n.(type) {
	case *File:
		return NewFile(n.content)
	case *Dir:
		return cloneDir(n)
	default:
		return nil
	}
}

func cloneDir(d *Dir) *Dir {
	out := NewDir()
	d.children.Range(func(name string, child Node) bool {
		out.children.Store(name, Clone(child))
		return true
	})
	return out
}

// Equal reports whether a and b have the same shape, names and file contents
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case *File:
		bf, ok := b.(*File)
		return ok && a.content == bf.content
	case *Dir:
		bd, ok := b.(*Dir)
		if !ok || a.Len() != bd.Len() {
			return false
		}
		equal := true
		a.children.Range(func(name string, child Node) bool {
			other, ok := bd.GetChild(name)
			if !ok || !Equal(child, other) {
				equal = false
			}
			return equal
		})
		return equal
	default:
		return false
	}
}

// KindOf names the node's variant ("directory" or "file")
func KindOf(n Node) string {
	switch n.(type) {
	case *Dir:
		return "directory"
	case *File:
		return "file"
	default:
		return "unknown"
	}
}
