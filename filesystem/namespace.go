package filesystem

import "github.com/brettbedarf/memfs"

// Namespace owns the root directory and, through it, every node in the tree.
// It does no locking of its own; callers serialize access.
type Namespace struct {
	root *Dir
}

// NewNamespace creates a namespace holding only an empty root
func NewNamespace() *Namespace {
	return &Namespace{root: NewDir()}
}

// Root returns the root directory
func (ns *Namespace) Root() *Dir {
	return ns.root
}

// Replace swaps in a whole new tree, e.g. one decoded from a snapshot
func (ns *Namespace) Replace(root *Dir) {
	ns.root = root
}

// Lookup returns the node at absolute path p
func (ns *Namespace) Lookup(p string) (Node, bool) {
	return Lookup(ns.root, p)
}

// LookupDir returns the directory at p or ErrNotFound / ErrWrongType
func (ns *Namespace) LookupDir(p string) (*Dir, error) {
	n, ok := ns.Lookup(p)
	if !ok {
		return nil, memfs.ErrNotFound
	}
	dir, ok := n.(*Dir)
	if !ok {
		return nil, memfs.ErrWrongType
	}
	return dir, nil
}

// Snapshot returns a deep copy of the root that shares nothing with the live tree
func (ns *Namespace) Snapshot() *Dir {
	return cloneDir(ns.root)
}

// Walk visits every node depth first in lexical order, starting with the root
// at "/". Returning false from fn skips that node's descendants.
func (ns *Namespace) Walk(fn func(p string, n Node) bool) {
	walk(RootPath, ns.root, fn)
}

func walk(p string, n Node, fn func(string, Node) bool) {
	if !fn(p, n) {
		return
	}
	dir, ok := n.(*Dir)
	if !ok {
		return
	}
	dir.Range(func(name string, child Node) bool {
		walk(childPath(p, name), child, fn)
		return true
	})
}

// childPath appends name to p without cleaning, so literal "." or ".." names survive
func childPath(p, name string) string {
	if p == RootPath {
		return RootPath + name
	}
	return p + "/" + name
}
