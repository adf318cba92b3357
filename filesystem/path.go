package filesystem

import "strings"

// RootPath is the absolute path of the root directory
const RootPath = "/"

// Segments splits p into its non-empty "/" separated segments
func Segments(p string) []string {
	parts := strings.Split(p, "/")
	segs := parts[:0]
	for _, part := range parts {
		if part != "" {
			segs = append(segs, part)
		}
	}
	return segs
}

// JoinSegments builds an absolute path from segs; no segments is the root
func JoinSegments(segs []string) string {
	return "/" + strings.Join(segs, "/")
}

// Resolve turns input into an absolute path relative to cwd without consulting the tree.
//
// Absolute input is returned unchanged. For relative input a leading ".." pops
// one segment off cwd (nothing at the root) and every remaining segment is
// appended as-is: only the first ".." is interpreted, so "../../x" from /a/b
// resolves to /a/../x.
func Resolve(cwd, input string) string {
	if strings.HasPrefix(input, "/") {
		return input
	}

	cur := Segments(cwd)
	in := Segments(input)

	if len(in) > 0 && in[0] == ".." {
		if len(cur) > 0 {
			cur = cur[:len(cur)-1]
		}
		in = in[1:]
	}

	return JoinSegments(append(cur, in...))
}

// SplitParentAndName splits an absolute path on its last "/".
// parent is "" for a top level entry such as "/a"; see [ParentOrRoot].
func SplitParentAndName(p string) (parent, name string) {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return "", p
	}
	return p[:idx], p[idx+1:]
}

// ParentOrRoot maps the empty parent returned by [SplitParentAndName] to the root
func ParentOrRoot(parent string) string {
	if parent == "" {
		return RootPath
	}
	return parent
}

// IsWithin reports whether p is ancestor itself or lies below it
func IsWithin(p, ancestor string) bool {
	ps, as := Segments(p), Segments(ancestor)
	if len(ps) < len(as) {
		return false
	}
	for i := range as {
		if ps[i] != as[i] {
			return false
		}
	}
	return true
}

// Lookup walks p's segments from root. It fails if any segment is missing
// or an intermediate node is not a directory.
func Lookup(root *Dir, p string) (Node, bool) {
	var cur Node = root
	for _, seg := range Segments(p) {
		dir, ok := cur.(*Dir)
		if !ok {
			return nil, false
		}
		child, ok := dir.GetChild(seg)
		if !ok {
			return nil, false
		}
		cur = child
	}
	return cur, true
}
