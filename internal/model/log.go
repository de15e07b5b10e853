package model

import "time"

// LogEntry is one line of engine activity shown to the user. Entries are
// append-only and newest-first at the presentation boundary.
type LogEntry struct {
	Timestamp time.Time
	FileName  string
	Message   string
	Success   bool
}
