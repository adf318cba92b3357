package filesystem

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/internal/util"
)

// FileSystem implements the namespace operations over a [Namespace] and
// tracks the session's current directory. It is not safe for concurrent use;
// see server.MemFs for the serialized, persisted wrapper.
type FileSystem struct {
	cfg *config.Config
	ns  *Namespace
	cwd string // always an existing directory
}

var _ memfs.Operator = (*FileSystem)(nil)

// NewFS creates a FileSystem over a fresh namespace with the current directory at "/".
// A nil cfg uses the defaults.
func NewFS(cfg *config.Config) *FileSystem {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	return &FileSystem{cfg: cfg, ns: NewNamespace(), cwd: RootPath}
}

// Namespace exposes the underlying tree for persistence and mounting
func (fs *FileSystem) Namespace() *Namespace {
	return fs.ns
}

// Replace swaps in a whole new tree and moves the current directory back to
// "/" if it no longer exists there
func (fs *FileSystem) Replace(root *Dir) {
	fs.ns.Replace(root)
	fs.repairCwd()
}

// resolve turns caller input into a clean absolute path against the current
// directory. Empty segments and trailing slashes are dropped.
func (fs *FileSystem) resolve(input string) string {
	return JoinSegments(Segments(Resolve(fs.cwd, input)))
}

// repairCwd resets the current directory to the root when a mutation or reload removed it
func (fs *FileSystem) repairCwd() {
	if _, err := fs.ns.LookupDir(fs.cwd); err != nil {
		logger := util.GetLogger("FS.repairCwd")
		logger.Warn().Str("cwd", fs.cwd).Msg("Current directory no longer exists; moving to root")
		fs.cwd = RootPath
	}
}

// Pwd returns the current directory's absolute path
func (fs *FileSystem) Pwd() string {
	return fs.cwd
}

// Cd changes the current directory. "", "/" and "~" go to the root and ".."
// goes up one level (staying put at the root). Any other target must be an
// existing directory; on failure the current directory is unchanged.
func (fs *FileSystem) Cd(path string) error {
	logger := util.GetLogger("FS.Cd")

	switch path {
	case "", RootPath, "~":
		fs.cwd = RootPath
		return nil
	case "..":
		parent, _ := SplitParentAndName(fs.cwd)
		fs.cwd = ParentOrRoot(parent)
		return nil
	}

	target := fs.resolve(path)
	if _, err := fs.ns.LookupDir(target); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Invalid cd target")
		return memfs.NewOpError("cd", path, err)
	}
	fs.cwd = target
	logger.Trace().Str("cwd", fs.cwd).Msg("Changed directory")
	return nil
}

// Ls lists the names in the directory at path, or the current directory if
// path is empty. Names are sorted.
func (fs *FileSystem) Ls(path string) ([]string, error) {
	target := fs.cwd
	if path != "" {
		target = fs.resolve(path)
	}
	dir, err := fs.ns.LookupDir(target)
	if err != nil {
		return []string{}, memfs.NewOpError("ls", path, err)
	}
	return dir.Names(), nil
}

// Cat returns the content of the file at name
func (fs *FileSystem) Cat(name string) (string, error) {
	file, err := fs.lookupFile(name)
	if err != nil {
		return "", memfs.NewOpError("cat", name, err)
	}
	return file.Content(), nil
}

// Grep returns the lines of the file at name containing pattern as a literal,
// case-sensitive substring. An empty file has no lines.
func (fs *FileSystem) Grep(name, pattern string) ([]string, error) {
	file, err := fs.lookupFile(name)
	if err != nil {
		return []string{}, memfs.NewOpError("grep", name, err)
	}

	matches := []string{}
	if file.Content() == "" {
		return matches, nil
	}
	for _, line := range strings.Split(file.Content(), "\n") {
		if strings.Contains(line, pattern) {
			matches = append(matches, line)
		}
	}
	return matches, nil
}

// Find returns every absolute path in the tree matching pattern, a doublestar
// glob resolved against the current directory (e.g. "**/*.txt"). Results are sorted.
func (fs *FileSystem) Find(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "**"
	}
	abs := Resolve(fs.cwd, pattern)
	if !doublestar.ValidatePattern(abs) {
		return []string{}, memfs.NewOpError("find", pattern, memfs.ErrInvalidPattern)
	}

	matches := []string{}
	fs.ns.Walk(func(p string, _ Node) bool {
		if p == RootPath {
			return true
		}
		if ok, _ := doublestar.Match(abs, p); ok {
			matches = append(matches, p)
		}
		return true
	})
	sort.Strings(matches)
	return matches, nil
}

func (fs *FileSystem) lookupFile(name string) (*File, error) {
	n, ok := fs.ns.Lookup(fs.resolve(name))
	if !ok {
		return nil, memfs.ErrNotFound
	}
	file, ok := n.(*File)
	if !ok {
		return nil, memfs.ErrWrongType
	}
	return file, nil
}
