// Package watcher wraps fsnotify with per-path coalescing and file-only
// event delivery for a single watched root.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"shelfwise/internal/common"
	"shelfwise/internal/model"
)

// DefaultCoalesceWindow collapses rapid successive writes to one event.
const DefaultCoalesceWindow = 500 * time.Millisecond

// Handler receives event batches on the watcher's own goroutine. Handlers
// must be reentrant-safe; multiple watchers can fire concurrently.
type Handler func(events []model.WatchEvent)

// Watcher emits coalesced file-level change events for one watched root.
type Watcher struct {
	root     string
	depth    int
	coalesce time.Duration
	handler  Handler
	logger   *slog.Logger

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	pending map[string]*pendingEvent
}

type pendingEvent struct {
	timer *time.Timer
	kind  model.EventKind
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithCoalesceWindow overrides the default write-coalescing window.
func WithCoalesceWindow(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.coalesce = d
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher for root. depth follows FolderConfig.WatchDepth
// semantics (0 = root only, -1 = unbounded).
func New(root string, depth int, handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		root:     filepath.Clean(root),
		depth:    depth,
		coalesce: DefaultCoalesceWindow,
		handler:  handler,
		logger:   slog.Default(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		pending:  make(map[string]*pendingEvent),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins emitting events for the watched root. Initialization failure
// is reported as a wrapped ErrWatchUnavailable; the caller decides whether
// the folder stays configured but unwatched.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrWatchUnavailable, err)
	}
	w.fsw = fsw

	if err := w.addTree(w.root); err != nil {
		_ = fsw.Close()
		w.fsw = nil
		return fmt.Errorf("%w: %v", common.ErrWatchUnavailable, err)
	}

	w.started = true
	go w.run()
	return nil
}

// Stop ceases emission and releases native resources. Safe to call multiple
// times or without a prior Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	close(w.stopCh)

	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = make(map[string]*pendingEvent)
	w.mu.Unlock()

	if started {
		select {
		case <-w.doneCh:
		case <-time.After(3 * time.Second):
		}
	}
}

// Root returns the watched root path.
func (w *Watcher) Root() string {
	return w.root
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch backend error", "root", w.root, "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// New directory: register it when depth permits, never surface it.
			if w.dirWithinDepth(path) {
				if err := w.addTree(path); err != nil {
					w.logger.Warn("failed to watch new subdirectory", "path", path, "error", err)
				}
			}
			return
		}
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.schedule(path, model.EventCreated)
	case event.Op&fsnotify.Write != 0:
		w.schedule(path, model.EventModified)
	case event.Op&fsnotify.Remove != 0:
		w.emitNow(path, model.EventRemoved)
	case event.Op&fsnotify.Rename != 0:
		w.emitNow(path, model.EventRenamed)
	}
}

// schedule coalesces create/write bursts for one path into a single event.
// A create followed by writes inside the window still surfaces as created.
func (w *Watcher) schedule(path string, kind model.EventKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	if p, exists := w.pending[path]; exists {
		p.timer.Stop()
		if p.kind == model.EventCreated {
			kind = model.EventCreated
		}
	}

	finalKind := kind
	w.pending[path] = &pendingEvent{
		kind: finalKind,
		timer: time.AfterFunc(w.coalesce, func() {
			w.mu.Lock()
			delete(w.pending, path)
			stopped := w.stopped
			w.mu.Unlock()
			if stopped {
				return
			}
			w.handler([]model.WatchEvent{{Path: path, Kind: finalKind}})
		}),
	}
}

// emitNow surfaces removals and renames immediately, canceling any pending
// coalesced event for the same path.
func (w *Watcher) emitNow(path string, kind model.EventKind) {
	w.mu.Lock()
	if p, exists := w.pending[path]; exists {
		p.timer.Stop()
		delete(w.pending, path)
	}
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}
	w.handler([]model.WatchEvent{{Path: path, Kind: kind}})
}

// addTree registers dir and any subdirectories that can contain files within
// the watch depth.
func (w *Watcher) addTree(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}
	if w.depth == 0 {
		return nil
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == dir || !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !w.dirWithinDepth(path) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn("failed to watch subdirectory", "path", path, "error", addErr)
		}
		return nil
	})
	return walkErr
}

// dirWithinDepth reports whether files directly inside dir fall within the
// configured watch depth.
func (w *Watcher) dirWithinDepth(dir string) bool {
	if w.depth < 0 {
		return true
	}
	rel, err := filepath.Rel(w.root, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	if rel == "." {
		return true
	}
	levels := strings.Count(filepath.ToSlash(rel), "/") + 1
	return levels <= w.depth
}
