// Package snapshot persists a whole namespace tree to a single file and
// restores it on startup.
package snapshot

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/internal/util"
)

// ErrNoSnapshot is returned by Load when there is no snapshot file yet
var ErrNoSnapshot = errors.New("no snapshot file")

// Store saves and restores the namespace tree
type Store interface {
	Save(root *filesystem.Dir) error
	Load() (*filesystem.Dir, error)
}

// FileStore keeps the snapshot in one file whose extension selects the format
type FileStore struct {
	path   string
	format Format

	mu     sync.Mutex
	digest [sha256.Size]byte // of the last content this store wrote or read
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store for path, failing on an unsupported extension
func NewFileStore(path string) (*FileStore, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, format: format}, nil
}

// Path returns the snapshot file path
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the whole tree. The file is replaced atomically so readers
// never observe a partial snapshot.
func (s *FileStore) Save(root *filesystem.Dir) error {
	logger := util.GetLogger("Snapshot.Save")

	data, err := Encode(root, s.format)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", memfs.ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: %w", memfs.ErrPersistence, err)
	}
	s.digest = sha256.Sum256(data)

	logger.Trace().Str("path", s.path).Int("bytes", len(data)).Msg("Saved snapshot")
	return nil
}

// Load reads and validates the snapshot. A missing file is ErrNoSnapshot;
// anything unreadable or malformed wraps memfs.ErrPersistence.
func (s *FileStore) Load() (*filesystem.Dir, error) {
	logger := util.GetLogger("Snapshot.Load")

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("%w: %w", memfs.ErrPersistence, err)
	}

	root, err := Decode(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", memfs.ErrPersistence, s.path, err)
	}
	s.digest = sha256.Sum256(data)

	logger.Debug().Str("path", s.path).Int("entries", root.Len()).Msg("Loaded snapshot")
	return root, nil
}

// Changed reports whether the file on disk differs from what this store last
// wrote or read. Used to tell external edits apart from our own saves.
func (s *FileStore) Changed() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return sha256.Sum256(data) != s.digest
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
