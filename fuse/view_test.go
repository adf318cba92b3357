package fuse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileAttr(t *testing.T) {
	t.Parallel()

	mtime := time.Unix(1700000000, 0)
	attr := FileAttr(filesystem.NewFile("hello"), mtime)

	assert.Equal(t, uint64(5), attr.Size)
	assert.Equal(t, uint32(fuse.S_IFREG|fileMode), attr.Mode)
	assert.Equal(t, uint64(mtime.Unix()), attr.Mtime)
}

func TestNewRoot(t *testing.T) {
	t.Parallel()

	tree := filesystem.NewDir()
	root := NewRoot(tree)
	assert.Same(t, tree, root.tree)
	assert.False(t, root.mtime.IsZero())
}

// TestMount needs a usable /dev/fuse and fusermount; it is skipped elsewhere
func TestMount(t *testing.T) {
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("FUSE not available")
	}

	tree := filesystem.NewDir()
	docs := filesystem.NewDir()
	docs.AddChild("a.txt", filesystem.NewFile("line\n"))
	tree.AddChild("docs", docs)

	dir := t.TempDir()
	srv, err := Mount(dir, tree, config.MountOptions{FsName: "memfs", Name: "memfs"})
	if err != nil {
		t.Skipf("mount failed: %v", err)
	}
	defer func() { _ = srv.Unmount() }()

	data, err := os.ReadFile(filepath.Join(dir, "docs", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))

	err = os.WriteFile(filepath.Join(dir, "docs", "b.txt"), []byte("x"), 0o644)
	assert.Error(t, err, "view is read-only")
}
