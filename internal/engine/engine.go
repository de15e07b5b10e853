// Package engine orchestrates the watch -> classify -> move pipeline for a
// set of configured folders.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"shelfwise/internal/llm"
	"shelfwise/internal/model"
	"shelfwise/internal/watcher"
)

// Config holds engine tunables.
type Config struct {
	// Debounce is how long a detected change settles before processing.
	Debounce time.Duration
	// Cooldown keeps a processed path excluded from re-scheduling.
	Cooldown time.Duration
	// LogLimit caps log entries retained for display.
	LogLimit int
}

// DefaultConfig returns the default engine tunables.
func DefaultConfig() Config {
	return Config{
		Debounce: 2 * time.Second,
		Cooldown: 60 * time.Second,
		LogLimit: 200,
	}
}

// Deps bundles the engine's collaborators. Audit and Notifier may be nil.
type Deps struct {
	Classifier Classifier
	Extractor  Extractor
	Mover      Mover
	Notifier   Notifier
	Audit      AuditSink
	Logger     *slog.Logger
	NewWatcher WatcherFactory
}

type watchedFolder struct {
	cfg     model.FolderConfig
	watcher FolderWatcher
}

// Engine owns the watched-folder set and drives the per-file pipeline.
type Engine struct {
	cfg        Config
	classifier Classifier
	extractor  Extractor
	mover      Mover
	notifier   Notifier
	audit      AuditSink
	logger     *slog.Logger
	newWatcher WatcherFactory
	ctx        context.Context

	mu          sync.Mutex
	folders     map[string]*watchedFolder
	pending     map[string]struct{} // in-flight/cooldown path set, keys normalized
	scanning    map[string]bool     // folder id -> backlog scan running
	status      Status
	progress    model.ScanProgress
	log         []model.LogEntry
	subscribers []chan Snapshot
}

// New creates an engine. Zero fields in cfg fall back to defaults.
func New(cfg Config, deps Deps) *Engine {
	defaults := DefaultConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaults.Debounce
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	if cfg.LogLimit <= 0 {
		cfg.LogLimit = defaults.LogLimit
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	newWatcher := deps.NewWatcher
	if newWatcher == nil {
		newWatcher = func(folderCfg model.FolderConfig, handler func([]model.WatchEvent)) FolderWatcher {
			return watcher.New(folderCfg.Path, folderCfg.WatchDepth, handler, watcher.WithLogger(logger))
		}
	}

	return &Engine{
		cfg:        cfg,
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		mover:      deps.Mover,
		notifier:   deps.Notifier,
		audit:      deps.Audit,
		logger:     logger,
		newWatcher: newWatcher,
		ctx:        context.Background(),
		folders:    make(map[string]*watchedFolder),
		pending:    make(map[string]struct{}),
		scanning:   make(map[string]bool),
		status:     Status{State: StateIdle},
	}
}

// AddFolder registers a folder config and, when enabled, begins watching it
// immediately. Watch-setup failure leaves the folder configured but
// unwatched.
func (e *Engine) AddFolder(cfg model.FolderConfig) {
	e.mu.Lock()
	if existing, ok := e.folders[cfg.ID]; ok && existing.watcher != nil {
		existing.watcher.Stop()
	}
	folder := &watchedFolder{cfg: cfg}
	e.folders[cfg.ID] = folder
	e.mu.Unlock()

	if cfg.Enabled {
		e.startWatching(folder)
	}
}

// RemoveFolder stops watching and discards the config.
func (e *Engine) RemoveFolder(id string) {
	e.mu.Lock()
	folder, ok := e.folders[id]
	delete(e.folders, id)
	e.mu.Unlock()

	if ok && folder.watcher != nil {
		folder.watcher.Stop()
	}
}

// StartAll starts watchers for all enabled folders and publishes watching.
func (e *Engine) StartAll() {
	e.mu.Lock()
	folders := make([]*watchedFolder, 0, len(e.folders))
	for _, f := range e.folders {
		folders = append(folders, f)
	}
	e.mu.Unlock()

	for _, f := range folders {
		if f.cfg.Enabled {
			e.startWatching(f)
		}
	}
	e.setStatus(StateWatching, "")
}

// StopAll stops all watchers, clears the in-flight/cooldown set, and
// resets status to idle. Files already admitted to the pipeline finish on
// their own; only new scheduling stops.
func (e *Engine) StopAll() {
	e.mu.Lock()
	watchers := make([]FolderWatcher, 0, len(e.folders))
	for _, f := range e.folders {
		if f.watcher != nil {
			watchers = append(watchers, f.watcher)
			f.watcher = nil
		}
	}
	e.pending = make(map[string]struct{})
	e.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}

	e.setProgress(model.IdleProgress)
	e.setStatus(StateIdle, "")
}

// Undo reverses the most recent move and logs the outcome.
func (e *Engine) Undo() (*model.Operation, error) {
	op, err := e.mover.Undo()
	if op == nil && err == nil {
		return nil, nil
	}
	name := ""
	if op != nil {
		name = filepath.Base(op.Destination)
	}
	if err != nil {
		e.appendLog(name, fmt.Sprintf("undo failed: %v", err), false)
		return op, err
	}
	e.appendLog(name, fmt.Sprintf("move undone, restored to %s", op.Source), true)
	return op, nil
}

// History returns the mover's journal snapshot, newest first.
func (e *Engine) History() []model.Operation {
	return e.mover.History()
}

func (e *Engine) startWatching(folder *watchedFolder) {
	e.mu.Lock()
	if folder.watcher != nil {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	cfg := folder.cfg
	w := e.newWatcher(cfg, func(events []model.WatchEvent) {
		e.handleEvents(cfg, events)
	})

	if err := w.Start(); err != nil {
		// Non-fatal: the folder stays configured but unwatched.
		e.logger.Warn("failed to start watching folder",
			"folder", cfg.Path,
			"error", err)
		e.appendLog(filepath.Base(cfg.Path), fmt.Sprintf("watch unavailable: %v", err), false)
		return
	}

	e.mu.Lock()
	folder.watcher = w
	e.mu.Unlock()

	e.logger.Info("watching folder", "path", cfg.Path, "depth", cfg.WatchDepth)
}

// handleEvents applies the gating chain to a watcher batch and schedules
// admitted files after the debounce interval.
func (e *Engine) handleEvents(cfg model.FolderConfig, events []model.WatchEvent) {
	for _, event := range events {
		if event.Kind != model.EventCreated && event.Kind != model.EventModified {
			continue
		}
		if !e.admit(cfg, event.Path) {
			continue
		}
		e.scheduleFile(cfg, event.Path)
	}
}

// admit runs gating steps 1-4: hidden/temp names, depth, extension, and the
// in-flight/cooldown set. On success the path is inserted into the set.
func (e *Engine) admit(cfg model.FolderConfig, path string) bool {
	name := filepath.Base(path)
	if isHiddenName(name) || isTemporaryName(name) {
		return false
	}
	if !cfg.WithinDepth(path) {
		return false
	}
	if !cfg.AllowsExtension(path) {
		return false
	}
	return e.tryReserve(path)
}

// tryReserve inserts the normalized path into the pending set, rejecting
// paths already in flight or cooling down.
func (e *Engine) tryReserve(path string) bool {
	key := normalizePath(path)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.pending[key]; busy {
		return false
	}
	e.pending[key] = struct{}{}
	return true
}

// scheduleFile runs the pipeline once the debounce interval elapses,
// without tying up a goroutine in the meantime.
func (e *Engine) scheduleFile(cfg model.FolderConfig, path string) {
	time.AfterFunc(e.cfg.Debounce, func() {
		e.processFile(cfg, path)
		e.releaseAfterCooldown(path)
	})
}

// releaseAfterCooldown keeps the path excluded for the cooldown grace
// period so rapid follow-up edits (including the mover's own rewrite of
// the path) do not trigger an immediate reprocessing loop.
func (e *Engine) releaseAfterCooldown(path string) {
	key := normalizePath(path)
	time.AfterFunc(e.cfg.Cooldown, func() {
		e.mu.Lock()
		delete(e.pending, key)
		e.mu.Unlock()
	})
}

// processFile runs the per-file pipeline. Failures are contained to this
// file: they are logged and published, never escalated.
func (e *Engine) processFile(cfg model.FolderConfig, path string) {
	// The file may have been moved or deleted while the debounce elapsed.
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("could not stat file", "path", path, "error", err)
		}
		return
	}
	if info.IsDir() {
		return
	}

	name := filepath.Base(path)
	e.setStatus(StateProcessing, name)

	meta := model.FileMetadata{
		Name: name,
		Size: info.Size(),
		// File birth time is not portable; modification time stands in.
		Created:  info.ModTime(),
		Modified: info.ModTime(),
	}

	var extracted string
	if cfg.ExtractText {
		result, extractErr := e.extractor.Extract(path)
		if extractErr != nil {
			e.failFile(name, fmt.Errorf("content extraction failed: %w", extractErr))
			return
		}
		extracted = result.Text
	}

	existing, err := listSubfolders(cfg.Path)
	if err != nil {
		e.failFile(name, fmt.Errorf("could not list destination folders: %w", err))
		return
	}

	classification, err := e.classifier.Classify(e.ctx, meta, extracted, existing, cfg.Prompt, llm.RenameConfig{
		Enabled: cfg.RenameFiles,
		Mode:    cfg.RenameMode,
		Rule:    cfg.RenameRule,
	})
	if err != nil {
		e.failFile(name, err)
		return
	}

	op, err := e.mover.Organize(path, classification, cfg.Path)
	if err != nil {
		e.failFile(name, err)
		return
	}

	// The move itself raises a create event at the destination; keep that
	// path excluded so the file is not immediately reclassified.
	if e.tryReserve(op.Destination) {
		e.releaseAfterCooldown(op.Destination)
	}

	if e.audit != nil {
		if auditErr := e.audit.RecordOperation(e.ctx, op); auditErr != nil {
			e.logger.Warn("failed to persist operation", "error", auditErr)
		}
	}

	message := fmt.Sprintf("moved to %s", classification.Folder)
	if classification.Reason != "" {
		message += " — " + classification.Reason
	}
	e.appendLog(name, message, true)

	if e.notifier != nil {
		if notifyErr := e.notifier.Notify(e.ctx, "File organized", fmt.Sprintf("%s → %s", name, classification.Folder)); notifyErr != nil {
			e.logger.Warn("notification failed", "error", notifyErr)
		}
	}

	e.setStatus(StateWatching, "")
}

// failFile records a per-file pipeline failure. The file stays in place
// and is not retried before its cooldown expires.
func (e *Engine) failFile(name string, err error) {
	e.logger.Error("file processing failed", "file", name, "error", err)
	e.appendLog(name, err.Error(), false)
	e.setStatus(StateError, err.Error())
}

// listSubfolders enumerates root's immediate non-hidden subdirectories for
// classifier placement context.
func listSubfolders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, entry := range entries {
		if entry.IsDir() && !isHiddenName(entry.Name()) {
			folders = append(folders, entry.Name())
		}
	}
	return folders, nil
}

func normalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// temporarySuffixes mark partial downloads and editor scratch files.
var temporarySuffixes = []string{
	".crdownload", ".download", ".part", ".partial", ".tmp", ".temp", "~",
}

func isTemporaryName(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range temporarySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
