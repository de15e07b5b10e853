package model

import "time"

// FileMetadata carries the facts about a file that are embedded in the
// classification prompt.
type FileMetadata struct {
	Created  time.Time
	Modified time.Time
	Name     string
	Size     int64
}

// Classification is the backend's placement decision for a file.
type Classification struct {
	// Folder is a slash-separated path relative to the watched root. Segments
	// need not exist yet; the mover creates them.
	Folder string `json:"folder"`
	// Reason is the backend's human-readable justification. May be empty.
	Reason string `json:"reason"`
	// SuggestedName, when present, is the proposed filename without extension.
	SuggestedName string `json:"suggestedName,omitempty"`
}
