package filesystem

import (
	"testing"

	"github.com/brettbedarf/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespace_LookupDir(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	ns.Root().AddChild("d", NewDir())
	ns.Root().AddChild("f", NewFile(""))

	dir, err := ns.LookupDir("/d")
	require.NoError(t, err)
	assert.NotNil(t, dir)

	_, err = ns.LookupDir("/f")
	assert.ErrorIs(t, err, memfs.ErrWrongType)
	_, err = ns.LookupDir("/nope")
	assert.ErrorIs(t, err, memfs.ErrNotFound)
}

func TestNamespace_Walk(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	b := NewDir()
	b.AddChild("z", NewFile(""))
	b.AddChild("..", NewFile(""))
	ns.Root().AddChild("b", b)
	ns.Root().AddChild("a", NewFile(""))

	var seen []string
	ns.Walk(func(p string, _ Node) bool {
		seen = append(seen, p)
		return true
	})
	assert.Equal(t, []string{"/", "/a", "/b", "/b/..", "/b/z"}, seen, "literal names must not be cleaned")
}

func TestNamespace_WalkSkip(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	sub := NewDir()
	sub.AddChild("hidden", NewFile(""))
	ns.Root().AddChild("skip", sub)

	var seen []string
	ns.Walk(func(p string, _ Node) bool {
		seen = append(seen, p)
		return p != "/skip"
	})
	assert.Equal(t, []string{"/", "/skip"}, seen)
}

func TestNamespace_SnapshotIndependent(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	ns.Root().AddChild("f", NewFile("v1"))

	snap := ns.Snapshot()
	f, _ := ns.Lookup("/f")
	f.(*File).SetContent("v2")
	ns.Root().AddChild("g", NewDir())

	got, ok := Lookup(snap, "/f")
	require.True(t, ok)
	assert.Equal(t, "v1", got.(*File).Content())
	assert.Equal(t, 1, snap.Len())
}

func TestNamespace_Replace(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	root := NewDir()
	ns.Replace(root)
	assert.Same(t, root, ns.Root())
}
