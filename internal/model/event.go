package model

// EventKind discriminates filesystem change events.
type EventKind string

// Watch event kinds.
const (
	EventCreated  EventKind = "created"
	EventModified EventKind = "modified"
	EventRemoved  EventKind = "removed"
	EventRenamed  EventKind = "renamed"
)

// WatchEvent is a single file-level change surfaced by a watcher. Directory
// events are filtered out before events reach the engine.
type WatchEvent struct {
	Path string // absolute path
	Kind EventKind
}
