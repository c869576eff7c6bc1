package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSNotify implements Watcher using fsnotify.
type FSNotify struct {
	mu sync.Mutex

	watcher *fsnotify.Watcher
	config  Config

	// roots maps each path given to Watch to the directories added for it.
	roots map[string][]string

	events chan Event
	errors chan error

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// NewFSNotify creates a watcher backed by fsnotify.
func NewFSNotify(opts ...Option) (*FSNotify, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &FSNotify{
		watcher: fsw,
		config:  config,
		roots:   make(map[string][]string),
		events:  make(chan Event, config.BufferSize),
		errors:  make(chan error, config.BufferSize),
		closeCh: make(chan struct{}),
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Watch starts watching a file, or a directory tree.
func (w *FSNotify) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrPathNotExist
		}
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if _, ok := w.roots[absPath]; ok {
		return ErrAlreadyWatching
	}

	if !info.IsDir() {
		// Watching the parent survives editors that replace the file on save.
		dir := filepath.Dir(absPath)
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.roots[absPath] = []string{dir}
		return nil
	}

	var added []string
	err = filepath.WalkDir(absPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != absPath && w.config.IgnoreHidden && hidden(p) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return err
		}
		added = append(added, p)
		return nil
	})
	if err != nil {
		for _, p := range added {
			_ = w.watcher.Remove(p)
		}
		return err
	}
	w.roots[absPath] = added
	return nil
}

// Unwatch stops watching a path previously passed to Watch.
func (w *FSNotify) Unwatch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	dirs, ok := w.roots[absPath]
	if !ok {
		return ErrNotWatching
	}
	delete(w.roots, absPath)
	for _, dir := range dirs {
		if !w.inUse(dir) {
			_ = w.watcher.Remove(dir)
		}
	}
	return nil
}

// inUse reports whether another root still needs dir. Callers hold mu.
func (w *FSNotify) inUse(dir string) bool {
	for _, dirs := range w.roots {
		for _, d := range dirs {
			if d == dir {
				return true
			}
		}
	}
	return false
}

// Events returns the event channel.
func (w *FSNotify) Events() <-chan Event {
	return w.events
}

// Errors returns the error channel.
func (w *FSNotify) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher.
func (w *FSNotify) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()

	close(w.events)
	close(w.errors)

	return w.watcher.Close()
}

// WatchedPaths returns the paths passed to Watch.
func (w *FSNotify) WatchedPaths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.roots))
	for p := range w.roots {
		paths = append(paths, p)
	}
	return paths
}

func (w *FSNotify) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *FSNotify) handleFSEvent(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}

	if op.Has(OpCreate) {
		if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
			w.addCreatedDir(fsEvent.Name)
			return
		}
	}

	if !w.relevant(fsEvent.Name) || !w.config.wants(fsEvent.Name) {
		return
	}

	w.sendEvent(Event{Path: fsEvent.Name, Op: op, Timestamp: time.Now()})
}

// relevant reports whether path belongs to a watched root. Single file
// roots share their directory with files nobody asked about.
func (w *FSNotify) relevant(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for root, dirs := range w.roots {
		if path == root {
			return true
		}
		if len(dirs) == 1 && dirs[0] != root {
			continue
		}
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addCreatedDir watches a directory created inside a watched tree.
func (w *FSNotify) addCreatedDir(dir string) {
	if w.config.IgnoreHidden && hidden(dir) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	for root, dirs := range w.roots {
		if !strings.HasPrefix(dir, root+string(filepath.Separator)) {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			w.sendError(err)
			return
		}
		w.roots[root] = append(dirs, dir)
		return
	}
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}

func (w *FSNotify) sendEvent(event Event) {
	select {
	case w.events <- event:
	default:
		w.sendError(errors.New("event channel full, dropping event for " + event.Path))
	}
}

func (w *FSNotify) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

var _ Watcher = (*FSNotify)(nil)
