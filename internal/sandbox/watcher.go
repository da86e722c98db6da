package sandbox

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/floyd-ai/floyd/internal/logger"
)

// ChangeWatcher observes the sandbox tree with fsnotify and feeds mutations
// into the manager's change tracking automatically, so tools that write
// through ordinary file APIs are still accounted for at commit time.
type ChangeWatcher struct {
	manager  *Manager
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
	existing map[string]struct{}
}

// NewChangeWatcher starts watching the active session's sandbox root. It
// fails with ErrNoActiveSession when no session is active.
func NewChangeWatcher(manager *Manager) (*ChangeWatcher, error) {
	session := manager.ActiveSession()
	if session == nil || session.State != SessionActive {
		return nil, ErrNoActiveSession
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &ChangeWatcher{
		manager:  manager,
		watcher:  watcher,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		existing: make(map[string]struct{}),
	}

	// fsnotify watches are not recursive; register every directory in the
	// clone and remember which files already exist so later writes are
	// classified as modifications rather than creations.
	err = filepath.WalkDir(session.SandboxRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		w.existing[path] = struct{}{}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

func (w *ChangeWatcher) run() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
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
			logger.Error("sandbox watcher error: %v", err)
		}
	}
}

func (w *ChangeWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				logger.Warn("failed to watch new sandbox directory %s: %v", path, err)
			}
			return
		}
		if _, seen := w.existing[path]; seen {
			w.manager.TrackChange(path, ChangeModified)
			return
		}
		w.existing[path] = struct{}{}
		w.manager.TrackChange(path, ChangeCreated)
	case event.Has(fsnotify.Write):
		if _, seen := w.existing[path]; !seen {
			w.existing[path] = struct{}{}
			w.manager.TrackChange(path, ChangeCreated)
			return
		}
		w.manager.TrackChange(path, ChangeModified)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.existing, path)
		w.manager.TrackChange(path, ChangeDeleted)
	}
}

// Close stops watching. It is safe to call once the session has been
// committed or discarded.
func (w *ChangeWatcher) Close() error {
	close(w.stopCh)
	err := w.watcher.Close()
	<-w.doneCh
	return err
}
