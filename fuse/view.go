// Package fuse exposes a read-only snapshot of the namespace as a FUSE mount.
package fuse

import (
	"context"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/internal/util"
)

const (
	dirMode  = 0o555
	fileMode = 0o444
)

// Root is the root inode of the view. The whole tree is built once in OnAdd
// from a private copy, so later namespace mutations are not reflected.
type Root struct {
	fs.Inode

	tree  *filesystem.Dir
	mtime time.Time
}

var _ = (fs.NodeOnAdder)((*Root)(nil))
var _ = (fs.NodeGetattrer)((*Root)(nil))

// NewRoot creates a view root over tree. tree should already be a snapshot;
// the view reads it when the kernel mounts, not now.
func NewRoot(tree *filesystem.Dir) *Root {
	return &Root{tree: tree, mtime: time.Now()}
}

// OnAdd populates the inode tree
func (r *Root) OnAdd(ctx context.Context) {
	r.addDir(ctx, &r.Inode, r.tree)
}

func (r *Root) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFDIR | dirMode
	out.SetTimes(nil, &r.mtime, nil)
	return 0
}

func (r *Root) addDir(ctx context.Context, parent *fs.Inode, dir *filesystem.Dir) {
	logger := util.GetLogger("Fuse.OnAdd")

	dir.Range(func(name string, child filesystem.Node) bool {
		// names the kernel would reject
		if name == "." || name == ".." {
			logger.Warn().Str("name", name).Msg("Skipping entry that cannot be represented")
			return true
		}

		switch c := child.(type) {
		case *filesystem.Dir:
			ch := parent.NewPersistentInode(ctx, &fs.Inode{}, fs.StableAttr{Mode: fuse.S_IFDIR})
			parent.AddChild(name, ch, false)
			r.addDir(ctx, ch, c)
		case *filesystem.File:
			file := &fs.MemRegularFile{
				Data: []byte(c.Content()),
				Attr: FileAttr(c, r.mtime),
			}
			ch := parent.NewPersistentInode(ctx, file, fs.StableAttr{Mode: fuse.S_IFREG})
			parent.AddChild(name, ch, false)
		}
		return true
	})
}

// FileAttr returns the attributes reported for a file in the view
func FileAttr(f *filesystem.File, mtime time.Time) fuse.Attr {
	attr := fuse.Attr{
		Mode: fuse.S_IFREG | fileMode,
		Size: uint64(len(f.Content())),
	}
	attr.SetTimes(nil, &mtime, nil)
	return attr
}

// Mount serves a read-only view of tree at dir. The returned server must be
// unmounted by the caller.
func Mount(dir string, tree *filesystem.Dir, opts config.MountOptions) (*fuse.Server, error) {
	logger := util.GetLogger("Fuse.Mount")
	lvl := util.DebugLevel
	if opts.Debug {
		lvl = util.TraceLevel
	}
	stdLogger := util.NewLogLogger("FuseServer", lvl)

	srv, err := fs.Mount(dir, NewRoot(tree), &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:    opts.Name,
			FsName:  opts.FsName,
			Debug:   opts.Debug,
			Logger:  stdLogger,
			Options: []string{"ro"},
		},
		Logger: stdLogger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("mountpoint", dir).Msg("Mounted read-only view")
	return srv, nil
}
