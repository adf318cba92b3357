package server

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/internal/mocks"
	"github.com/brettbedarf/memfs/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockedMemFs(t *testing.T) (*MemFs, *mocks.MockStore) {
	t.Helper()
	store := &mocks.MockStore{}
	store.On("Load").Return(nil, snapshot.ErrNoSnapshot).Once()
	m, err := NewWithStore(config.NewDefaultConfig(), store)
	require.NoError(t, err)
	return m, store
}

func TestNewWithStore_LoadsSnapshot(t *testing.T) {
	t.Parallel()

	root := filesystem.NewDir()
	root.AddChild("saved", filesystem.NewDir())

	store := &mocks.MockStore{}
	store.On("Load").Return(root, nil).Once()

	m, err := NewWithStore(nil, store)
	require.NoError(t, err)

	ls, err := m.Ls("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"saved"}, ls)
	store.AssertExpectations(t)
}

func TestNewWithStore_LoadError(t *testing.T) {
	t.Parallel()

	store := &mocks.MockStore{}
	store.On("Load").Return(nil, memfs.ErrPersistence).Once()

	m, err := NewWithStore(nil, store)
	assert.ErrorIs(t, err, memfs.ErrPersistence)
	assert.Nil(t, m)
}

func TestMemFs_PersistsAfterMutation(t *testing.T) {
	t.Parallel()

	m, store := newMockedMemFs(t)
	store.On("Save", mock.AnythingOfType("*filesystem.Dir")).Return(nil).Times(6)

	require.NoError(t, m.Mkdir("a"))
	require.NoError(t, m.Touch("/a/f"))
	require.NoError(t, m.Echo("hi", "/a/f", false))
	require.NoError(t, m.Cp("/a/f", "/g"))
	require.NoError(t, m.Mv("/g", "/a"))
	require.NoError(t, m.Rm("/a/f"))

	store.AssertExpectations(t)
}

func TestMemFs_NoPersistOnReadOrFailure(t *testing.T) {
	t.Parallel()

	m, store := newMockedMemFs(t)

	require.Error(t, m.Mkdir(""))
	require.Error(t, m.Rm("/"))
	require.NoError(t, m.Cd("/"))
	_, _ = m.Ls("")
	_, _ = m.Cat("/missing")
	_, _ = m.Grep("/missing", "x")
	_, _ = m.Find("**")
	assert.Equal(t, "/", m.Pwd())

	store.AssertNotCalled(t, "Save", mock.Anything)
}

func TestMemFs_SaveFailure(t *testing.T) {
	t.Parallel()

	m, store := newMockedMemFs(t)
	store.On("Save", mock.Anything).Return(errors.New("disk full")).Once()

	err := m.Mkdir("a")
	require.Error(t, err)
	assert.ErrorIs(t, err, memfs.ErrPersistence)
}

func TestMemFs_Reload(t *testing.T) {
	t.Parallel()

	m, store := newMockedMemFs(t)
	store.On("Save", mock.Anything).Return(nil)
	require.NoError(t, m.Mkdir("gone"))
	require.NoError(t, m.Cd("gone"))

	fresh := filesystem.NewDir()
	fresh.AddChild("other", filesystem.NewDir())
	store.On("Load").Return(fresh, nil).Once()

	require.NoError(t, m.Reload())
	assert.Equal(t, "/", m.Pwd(), "cwd must reset when the reloaded tree lacks it")
	ls, err := m.Ls("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, ls)
}

func TestMemFs_ReloadFailureKeepsTree(t *testing.T) {
	t.Parallel()

	m, store := newMockedMemFs(t)
	store.On("Save", mock.Anything).Return(nil)
	require.NoError(t, m.Mkdir("kept"))

	store.On("Load").Return(nil, memfs.ErrPersistence).Once()
	require.Error(t, m.Reload())

	store.On("Load").Return(nil, snapshot.ErrNoSnapshot).Once()
	require.NoError(t, m.Reload())

	ls, err := m.Ls("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, ls)
}

func TestMemFs_Close(t *testing.T) {
	t.Parallel()

	m, store := newMockedMemFs(t)
	store.On("Save", mock.Anything).Return(nil).Once()

	var order []int
	m.AddClose(func() error { order = append(order, 1); return nil })
	m.AddClose(func() error { order = append(order, 2); return nil })

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "second close is a no-op")

	assert.Equal(t, []int{2, 1}, order, "cleanups unwind in reverse")
	store.AssertExpectations(t)
}

func TestMemFs_CloseJoinsErrors(t *testing.T) {
	t.Parallel()

	m, store := newMockedMemFs(t)
	store.On("Save", mock.Anything).Return(nil).Once()
	boom := errors.New("boom")
	m.AddClose(func() error { return boom })

	assert.ErrorIs(t, m.Close(), boom)
}

func TestMemFs_Concurrent(t *testing.T) {
	t.Parallel()

	m, err := NewWithStore(nil, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "/d" + string(rune('a'+i))
			assert.NoError(t, m.Mkdir(name))
			assert.NoError(t, m.Echo("x", name+"/f", false))
			_, _ = m.Ls("/")
		}(i)
	}
	wg.Wait()

	ls, err := m.Ls("/")
	require.NoError(t, err)
	assert.Len(t, ls, 20)
}

func TestNew_FileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefaultConfig()
	cfg.SnapshotPath = filepath.Join(t.TempDir(), "state.json")

	first, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Mkdir("docs"))
	require.NoError(t, first.Echo(`a\nb`, "/docs/f", false))
	require.NoError(t, first.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	defer second.Close()

	content, err := second.Cat("/docs/f")
	require.NoError(t, err)
	assert.Equal(t, "a\nb", content)
}

func TestNew_BadExtension(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefaultConfig()
	cfg.SnapshotPath = filepath.Join(t.TempDir(), "state.txt")

	_, err := New(cfg)
	assert.ErrorIs(t, err, snapshot.ErrUnknownFormat)
}

func TestMemFs_WatchReloadsExternalWrite(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefaultConfig()
	cfg.SnapshotPath = filepath.Join(t.TempDir(), "state.json")

	m, err := New(cfg)
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Mkdir("mine"))
	require.NoError(t, m.Watch())

	theirs := filesystem.NewDir()
	theirs.AddChild("theirs", filesystem.NewDir())
	other, err := snapshot.NewFileStore(cfg.SnapshotPath)
	require.NoError(t, err)
	require.NoError(t, other.Save(theirs))

	assert.Eventually(t, func() bool {
		ls, err := m.Ls("/")
		return err == nil && len(ls) == 1 && ls[0] == "theirs"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestMemFs_WatchRequiresFileStore(t *testing.T) {
	t.Parallel()

	m, err := NewWithStore(nil, nil)
	require.NoError(t, err)
	assert.Error(t, m.Watch())
}
