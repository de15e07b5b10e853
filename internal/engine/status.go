package engine

import (
	"time"

	"shelfwise/internal/model"
)

// State is the engine's published scalar status.
type State string

// Engine states. processing and error carry a detail string (file name or
// error text). The scalar is last-write-wins for display; it is not a
// per-file lock.
const (
	StateIdle       State = "idle"
	StateWatching   State = "watching"
	StateProcessing State = "processing"
	StateError      State = "error"
)

// Status pairs the state with its display detail.
type Status struct {
	State  State
	Detail string
}

// Snapshot is the read-only view the presentation layer consumes.
type Snapshot struct {
	Status       Status
	Progress     model.ScanProgress
	Log          []model.LogEntry // newest first
	WatchedPaths []string
	CanUndo      bool
}

// Snapshot returns the current published state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	log := make([]model.LogEntry, len(e.log))
	for i, entry := range e.log {
		log[len(e.log)-1-i] = entry
	}

	paths := make([]string, 0, len(e.folders))
	for _, f := range e.folders {
		if f.watcher != nil {
			paths = append(paths, f.cfg.Path)
		}
	}

	return Snapshot{
		Status:       e.status,
		Progress:     e.progress,
		Log:          log,
		WatchedPaths: paths,
		CanUndo:      e.mover.CanUndo(),
	}
}

// Subscribe returns a channel that receives a snapshot after every state
// change. Slow consumers miss intermediate snapshots rather than blocking
// the pipeline.
func (e *Engine) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 16)
	e.mu.Lock()
	e.subscribers = append(e.subscribers, ch)
	e.mu.Unlock()
	return ch
}

func (e *Engine) setStatus(state State, detail string) {
	e.mu.Lock()
	e.status = Status{State: state, Detail: detail}
	e.publishLocked()
	e.mu.Unlock()
}

func (e *Engine) setProgress(p model.ScanProgress) {
	e.mu.Lock()
	e.progress = p
	e.publishLocked()
	e.mu.Unlock()
}

func (e *Engine) appendLog(fileName, message string, success bool) {
	entry := model.LogEntry{
		Timestamp: time.Now(),
		FileName:  fileName,
		Message:   message,
		Success:   success,
	}

	e.mu.Lock()
	e.log = append(e.log, entry)
	if len(e.log) > e.cfg.LogLimit {
		e.log = e.log[len(e.log)-e.cfg.LogLimit:]
	}
	e.publishLocked()
	e.mu.Unlock()

	if e.audit != nil {
		if err := e.audit.RecordLog(e.ctx, entry); err != nil {
			e.logger.Warn("failed to persist log entry", "error", err)
		}
	}
}

// publishLocked fans the current snapshot out to subscribers without
// blocking; callers hold e.mu.
func (e *Engine) publishLocked() {
	if len(e.subscribers) == 0 {
		return
	}
	snapshot := e.snapshotLocked()
	for _, ch := range e.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}
