package model

import "time"

// Operation records one completed move in the undo journal.
type Operation struct {
	Timestamp      time.Time
	ID             string
	Source         string // original absolute path
	Destination    string // final absolute path, after conflict resolution
	Classification Classification
}
