// Package model defines the core domain models used throughout the application.
package model

import (
	"path/filepath"
	"strings"
)

// RenameMode selects how suggested filenames are produced.
type RenameMode string

// Rename mode constants.
const (
	// RenameFreeForm asks the backend for a descriptive, date-prefixed name.
	RenameFreeForm RenameMode = "free-form"
	// RenameRuleBased asks the backend to follow the user-supplied rule text.
	RenameRuleBased RenameMode = "rule-based"
)

// WatchDepthUnbounded disables depth gating for a folder.
const WatchDepthUnbounded = -1

// FolderConfig describes a single watched root and its processing settings.
// The engine reads a snapshot per watch session; edits are applied by the
// configuration owner, never by the pipeline.
type FolderConfig struct {
	ID           string
	Path         string
	Prompt       string // free-text organization instructions for the backend
	Extensions   []string
	RenameRule   string
	RenameMode   RenameMode
	WatchDepth   int // 0 = root only, N > 0 = N levels, -1 = unbounded
	Enabled      bool
	ExtractText  bool
	RenameFiles  bool
}

// AllowsExtension reports whether the folder's allow-list admits the file.
// An empty allow-list admits everything.
func (f FolderConfig) AllowsExtension(path string) bool {
	if len(f.Extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, allowed := range f.Extensions {
		if strings.TrimPrefix(strings.ToLower(allowed), ".") == ext {
			return true
		}
	}
	return false
}

// WithinDepth reports whether path sits at or above the folder's watch depth.
// Depth is the number of directory levels between the watched root and the
// file; a file directly inside the root is at depth 0.
func (f FolderConfig) WithinDepth(path string) bool {
	if f.WatchDepth < 0 {
		return true
	}
	rel, err := filepath.Rel(f.Path, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	depth := strings.Count(filepath.ToSlash(rel), "/")
	return depth <= f.WatchDepth
}
