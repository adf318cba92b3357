package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/filesystem"
	mfuse "github.com/brettbedarf/memfs/fuse"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/snapshot"
)

// MemFs is the single context value every front-end works through. It owns
// the namespace session and the snapshot store, serializes every operation
// with one mutex and saves the whole tree after each successful mutation.
//
// Close() flushes a final snapshot and then unwinds all registered cleanup
// callbacks in reverse order.
type MemFs struct {
	mu       sync.Mutex
	fs       *filesystem.FileSystem
	store    snapshot.Store // nil keeps everything in memory only
	cfg      *config.Config
	closeFns []func() error
	closed   bool
}

var _ memfs.Operator = (*MemFs)(nil)

// New creates a MemFs given your config. A non-empty cfg.SnapshotPath is
// restored if the file exists and written after every mutation.
func New(cfg *config.Config) (*MemFs, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	var store snapshot.Store
	if cfg.SnapshotPath != "" {
		fileStore, err := snapshot.NewFileStore(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		store = fileStore
	}
	return NewWithStore(cfg, store)
}

// NewWithStore creates a MemFs persisting through store, which may be nil
func NewWithStore(cfg *config.Config, store snapshot.Store) (*MemFs, error) {
	logger := util.GetLogger("MemFs.New")
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	m := &MemFs{
		fs:    filesystem.NewFS(cfg),
		store: store,
		cfg:   cfg,
	}
	if store == nil {
		logger.Info().Msg("No snapshot configured; state will not persist")
		return m, nil
	}

	root, err := store.Load()
	switch {
	case errors.Is(err, snapshot.ErrNoSnapshot):
		logger.Info().Str("path", cfg.SnapshotPath).Msg("No snapshot found; starting empty")
	case err != nil:
		return nil, err
	default:
		m.fs.Replace(root)
	}
	return m, nil
}

// Config returns the effective configuration
func (m *MemFs) Config() *config.Config {
	return m.cfg
}

// mutate runs op under the lock and persists the tree if it succeeded
func (m *MemFs) mutate(op func(fs *filesystem.FileSystem) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := op(m.fs); err != nil {
		return err
	}
	return m.persistLocked()
}

func (m *MemFs) persistLocked() error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(m.fs.Namespace().Root()); err != nil {
		logger := util.GetLogger("MemFs.persist")
		logger.Error().Err(err).Msg("Failed to save snapshot")
		if !errors.Is(err, memfs.ErrPersistence) {
			err = fmt.Errorf("%w: %w", memfs.ErrPersistence, err)
		}
		return err
	}
	return nil
}

func (m *MemFs) Mkdir(name string) error {
	return m.mutate(func(fs *filesystem.FileSystem) error { return fs.Mkdir(name) })
}

func (m *MemFs) Touch(name string) error {
	return m.mutate(func(fs *filesystem.FileSystem) error { return fs.Touch(name) })
}

func (m *MemFs) Echo(text, name string, deleteContent bool) error {
	return m.mutate(func(fs *filesystem.FileSystem) error { return fs.Echo(text, name, deleteContent) })
}

func (m *MemFs) Mv(source, destination string) error {
	return m.mutate(func(fs *filesystem.FileSystem) error { return fs.Mv(source, destination) })
}

func (m *MemFs) Cp(source, destination string) error {
	return m.mutate(func(fs *filesystem.FileSystem) error { return fs.Cp(source, destination) })
}

func (m *MemFs) Rm(path string) error {
	return m.mutate(func(fs *filesystem.FileSystem) error { return fs.Rm(path) })
}

// Cd only changes session state, which is not persisted
func (m *MemFs) Cd(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fs.Cd(path)
}

func (m *MemFs) Pwd() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fs.Pwd()
}

func (m *MemFs) Ls(path string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fs.Ls(path)
}

func (m *MemFs) Cat(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fs.Cat(name)
}

func (m *MemFs) Grep(name, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fs.Grep(name, pattern)
}

func (m *MemFs) Find(pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fs.Find(pattern)
}

// Snapshot returns a deep copy of the current tree
func (m *MemFs) Snapshot() *filesystem.Dir {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fs.Namespace().Snapshot()
}

// Reload replaces the tree with the stored snapshot. A missing or invalid
// snapshot leaves the current tree untouched.
func (m *MemFs) Reload() error {
	logger := util.GetLogger("MemFs.Reload")
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	root, err := m.store.Load()
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		logger.Debug().Msg("Snapshot file gone; keeping current tree")
		return nil
	}
	if err != nil {
		return err
	}
	m.fs.Replace(root)
	logger.Info().Msg("Reloaded snapshot")
	return nil
}

// Watch reloads the tree whenever another process rewrites the snapshot file
func (m *MemFs) Watch() error {
	fileStore, ok := m.store.(*snapshot.FileStore)
	if !ok {
		return errors.New("watching requires a file snapshot store")
	}

	w, err := snapshot.NewWatcher(fileStore, func() {
		if err := m.Reload(); err != nil {
			logger := util.GetLogger("MemFs.Watch")
			logger.Error().Err(err).Msg("Failed to reload changed snapshot")
		}
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return err
	}
	m.AddClose(w.Stop)
	return nil
}

// Mount serves a read-only FUSE view of the current tree at dir.
// The view is unmounted by Close.
func (m *MemFs) Mount(dir string) error {
	srv, err := mfuse.Mount(dir, m.Snapshot(), m.cfg.MountOptions)
	if err != nil {
		return err
	}
	m.AddClose(srv.Unmount)
	return nil
}

// AddClose registers fn to run on Close. Callbacks run last-added first.
func (m *MemFs) AddClose(fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeFns = append(m.closeFns, fn)
}

// Close flushes a final snapshot and releases everything registered with
// AddClose. Calling it again is a no-op.
func (m *MemFs) Close() error {
	logger := util.GetLogger("MemFs.Close")

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	errs := []error{m.persistLocked()}
	closeFns := m.closeFns
	m.closeFns = nil
	m.mu.Unlock()

	// Unwind in reverse; callbacks may take the lock themselves
	for i := len(closeFns) - 1; i >= 0; i-- {
		errs = append(errs, closeFns[i]())
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.Error().Err(err).Msg("Close finished with errors")
	} else {
		logger.Debug().Msg("Closed")
	}
	return err
}
