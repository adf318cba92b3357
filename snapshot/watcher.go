package snapshot

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/brettbedarf/memfs/internal/util"
)

// Watcher calls back when another process rewrites the snapshot file.
// It watches the parent directory because atomic saves replace the file,
// which drops a watch placed on the file itself.
type Watcher struct {
	watcher  *fsnotify.Watcher
	store    *FileStore
	onChange func()
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for store's file. onChange runs on the
// watcher's goroutine for every external modification.
func NewWatcher(store *FileStore, onChange func()) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  w,
		store:    store,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.store.Path())
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.eventLoop()
	return nil
}

// Stop stops the watcher and waits for the event loop to exit
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	logger := util.GetLogger("Snapshot.Watcher")

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	if !w.store.Changed() {
		return
	}

	logger := util.GetLogger("Snapshot.Watcher")
	logger.Info().Str("path", event.Name).Str("op", event.Op.String()).Msg("Snapshot changed externally")
	w.onChange()
}
