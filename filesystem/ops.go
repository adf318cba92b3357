package filesystem

import (
	"strings"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/internal/util"
)

// Mkdir creates an empty directory at name. The parent must already exist;
// ancestors are never created implicitly.
func (fs *FileSystem) Mkdir(name string) error {
	logger := util.GetLogger("FS.Mkdir")

	parent, leaf, err := fs.prepareCreate(name)
	if err != nil {
		return memfs.NewOpError("mkdir", name, err)
	}
	parent.AddChild(leaf, NewDir())

	logger.Debug().Str("path", name).Msg("Created directory")
	return nil
}

// Touch creates an empty file at name. Unlike its POSIX namesake it fails if
// anything already exists there.
func (fs *FileSystem) Touch(name string) error {
	logger := util.GetLogger("FS.Touch")

	parent, leaf, err := fs.prepareCreate(name)
	if err != nil {
		return memfs.NewOpError("touch", name, err)
	}
	parent.AddChild(leaf, NewFile(""))

	logger.Debug().Str("path", name).Msg("Created file")
	return nil
}

// Echo writes text into the file at name, creating it if needed. Every literal
// two character sequence `\n` in text becomes a newline. With deleteContent the
// file is emptied and text is ignored.
func (fs *FileSystem) Echo(text, name string, deleteContent bool) error {
	logger := util.GetLogger("FS.Echo")

	if name == "" {
		return memfs.NewOpError("echo", name, memfs.ErrEmptyName)
	}

	content := ""
	if !deleteContent {
		content = strings.ReplaceAll(text, `\n`, "\n")
	}

	p := fs.resolve(name)
	switch n, _ := fs.ns.Lookup(p); n := n.(type) {
	case *File:
		n.SetContent(content)
	case *Dir:
		return memfs.NewOpError("echo", name, memfs.ErrWrongType)
	default:
		parentPath, leaf := SplitParentAndName(p)
		parent, err := fs.ns.LookupDir(ParentOrRoot(parentPath))
		if err != nil {
			return memfs.NewOpError("echo", name, err)
		}
		parent.AddChild(leaf, NewFile(content))
	}

	logger.Debug().Str("path", name).Int("bytes", len(content)).Bool("delete", deleteContent).Msg("Wrote file")
	return nil
}

// Mv moves the node at source into the existing directory destination, keeping
// its name. The node itself is relocated, not copied.
func (fs *FileSystem) Mv(source, destination string) error {
	logger := util.GetLogger("FS.Mv")

	if source == "" {
		return memfs.NewOpError("mv", source, memfs.ErrEmptyName)
	}
	sp := fs.resolve(source)
	if sp == RootPath {
		return memfs.NewOpError("mv", source, memfs.ErrRootViolation)
	}
	node, ok := fs.ns.Lookup(sp)
	if !ok {
		return memfs.NewOpError("mv", source, memfs.ErrNotFound)
	}

	dp := fs.resolve(destination)
	dstDir, err := fs.ns.LookupDir(dp)
	if err != nil || IsWithin(dp, sp) {
		return memfs.NewOpError("mv", destination, memfs.ErrInvalidDestination)
	}

	srcParentPath, leaf := SplitParentAndName(sp)
	srcParentPath = ParentOrRoot(srcParentPath)
	if srcParentPath == dp {
		logger.Debug().Str("source", sp).Msg("Source already in destination")
		return nil
	}
	if err := fs.checkClobber(dstDir, leaf); err != nil {
		return memfs.NewOpError("mv", destination, err)
	}
	srcParent, err := fs.ns.LookupDir(srcParentPath)
	if err != nil {
		return memfs.NewOpError("mv", source, err)
	}

	dstDir.AddChild(leaf, node)
	srcParent.RemoveChild(leaf)
	fs.repairCwd()

	logger.Debug().Str("source", sp).Str("destination", dp).Msg("Moved")
	return nil
}

// Cp deep copies the node at source. If destination is an existing directory
// the copy keeps source's name inside it; if destination does not exist the
// copy is created there under destination's own name.
func (fs *FileSystem) Cp(source, destination string) error {
	logger := util.GetLogger("FS.Cp")

	if source == "" {
		return memfs.NewOpError("cp", source, memfs.ErrEmptyName)
	}
	sp := fs.resolve(source)
	if sp == RootPath {
		return memfs.NewOpError("cp", source, memfs.ErrRootViolation)
	}
	node, ok := fs.ns.Lookup(sp)
	if !ok {
		return memfs.NewOpError("cp", source, memfs.ErrNotFound)
	}

	dp := fs.resolve(destination)
	var (
		target *Dir
		name   string
	)
	if existing, ok := fs.ns.Lookup(dp); ok {
		dir, isDir := existing.(*Dir)
		if !isDir {
			return memfs.NewOpError("cp", destination, memfs.ErrInvalidDestination)
		}
		_, srcLeaf := SplitParentAndName(sp)
		target, name = dir, srcLeaf
	} else {
		parentPath, dstLeaf := SplitParentAndName(dp)
		dir, err := fs.ns.LookupDir(ParentOrRoot(parentPath))
		if err != nil {
			return memfs.NewOpError("cp", destination, memfs.ErrInvalidDestination)
		}
		target, name = dir, dstLeaf
	}

	if err := fs.checkClobber(target, name); err != nil {
		return memfs.NewOpError("cp", destination, err)
	}
	target.AddChild(name, Clone(node))
	fs.repairCwd()

	logger.Debug().Str("source", sp).Str("destination", dp).Str("name", name).Msg("Copied")
	return nil
}

// Rm removes the node at path, including the whole subtree of a directory
func (fs *FileSystem) Rm(path string) error {
	logger := util.GetLogger("FS.Rm")

	// an empty path would resolve to the cwd
	if path == "" {
		return memfs.NewOpError("rm", path, memfs.ErrEmptyName)
	}
	p := fs.resolve(path)
	if path == RootPath || p == RootPath {
		return memfs.NewOpError("rm", path, memfs.ErrRootViolation)
	}
	if _, ok := fs.ns.Lookup(p); !ok {
		return memfs.NewOpError("rm", path, memfs.ErrNotFound)
	}
	parentPath, leaf := SplitParentAndName(p)
	parent, err := fs.ns.LookupDir(ParentOrRoot(parentPath))
	if err != nil {
		return memfs.NewOpError("rm", path, err)
	}

	parent.RemoveChild(leaf)
	fs.repairCwd()

	logger.Debug().Str("path", p).Msg("Removed")
	return nil
}

// prepareCreate validates a create request and returns the parent directory
// and leaf name the new node goes under
func (fs *FileSystem) prepareCreate(name string) (*Dir, string, error) {
	if name == "" {
		return nil, "", memfs.ErrEmptyName
	}
	p := fs.resolve(name)
	if _, exists := fs.ns.Lookup(p); exists {
		return nil, "", memfs.ErrAlreadyExists
	}
	parentPath, leaf := SplitParentAndName(p)
	parent, err := fs.ns.LookupDir(ParentOrRoot(parentPath))
	if err != nil {
		return nil, "", err
	}
	return parent, leaf, nil
}

// checkClobber refuses to replace an existing entry when clobbering is disabled
func (fs *FileSystem) checkClobber(dir *Dir, name string) error {
	if fs.cfg.Clobber {
		return nil
	}
	if _, exists := dir.GetChild(name); exists {
		return memfs.ErrAlreadyExists
	}
	return nil
}
