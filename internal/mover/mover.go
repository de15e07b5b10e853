// Package mover places classified files into their destination folders and
// keeps a reversible journal of completed moves.
package mover

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shelfwise/internal/common"
	"shelfwise/internal/model"
)

// maxJournalEntries bounds undo history growth; oldest entries are evicted.
const maxJournalEntries = 100

// Mover moves files into computed destinations with collision-safe naming
// and records each completed move on a LIFO undo journal.
type Mover struct {
	logger *slog.Logger

	mu      sync.Mutex
	journal []model.Operation
}

// New creates a mover.
func New(logger *slog.Logger) *Mover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mover{logger: logger}
}

// Organize moves filePath into baseDir/classification.Folder, creating the
// destination tree as needed. The move is a single rename so callers never
// observe partial files. The completed move is pushed onto the undo journal.
func (m *Mover) Organize(filePath string, classification model.Classification, baseDir string) (model.Operation, error) {
	destDir := filepath.Join(baseDir, filepath.FromSlash(classification.Folder))
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return model.Operation{}, fmt.Errorf("failed to create destination folder: %w", err)
	}

	destName := destinationName(filepath.Base(filePath), classification.SuggestedName)
	destPath, err := resolveCollision(filepath.Join(destDir, destName))
	if err != nil {
		return model.Operation{}, err
	}

	if err := os.Rename(filePath, destPath); err != nil {
		return model.Operation{}, fmt.Errorf("failed to move file: %w", err)
	}

	op := model.Operation{
		ID:             uuid.New().String(),
		Timestamp:      time.Now(),
		Source:         filePath,
		Destination:    destPath,
		Classification: classification,
	}

	m.mu.Lock()
	m.journal = append(m.journal, op)
	if len(m.journal) > maxJournalEntries {
		m.journal = m.journal[len(m.journal)-maxJournalEntries:]
	}
	m.mu.Unlock()

	m.logger.Info("file organized",
		"source", filePath,
		"destination", destPath,
		"folder", classification.Folder)

	return op, nil
}

// Undo reverses the most recent move. It returns nil, nil when the journal
// is empty. The popped entry is discarded even when the reversal fails: a
// destination moved externally cannot be recovered by retrying.
func (m *Mover) Undo() (*model.Operation, error) {
	m.mu.Lock()
	if len(m.journal) == 0 {
		m.mu.Unlock()
		return nil, nil
	}
	op := m.journal[len(m.journal)-1]
	m.journal = m.journal[:len(m.journal)-1]
	m.mu.Unlock()

	if err := m.Revert(op); err != nil {
		return &op, err
	}
	return &op, nil
}

// Revert moves an operation's file back to its source, bypassing the
// journal. It backs the undo path for operations restored from persisted
// history rather than the in-memory journal.
func (m *Mover) Revert(op model.Operation) error {
	if _, err := os.Stat(op.Destination); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", common.ErrDestinationMissing, op.Destination)
		}
		return fmt.Errorf("failed to stat destination: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(op.Source), 0o750); err != nil {
		return fmt.Errorf("failed to restore source folder: %w", err)
	}
	if err := os.Rename(op.Destination, op.Source); err != nil {
		return fmt.Errorf("failed to move file back: %w", err)
	}

	// Clean up the destination folder if the mover left it empty.
	m.removeIfEmpty(filepath.Dir(op.Destination))

	m.logger.Info("move undone",
		"destination", op.Destination,
		"restored", op.Source)

	return nil
}

// History returns a snapshot of the journal, newest first.
func (m *Mover) History() []model.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Operation, len(m.journal))
	for i, op := range m.journal {
		out[len(m.journal)-1-i] = op
	}
	return out
}

// CanUndo reports whether the journal holds at least one entry.
func (m *Mover) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.journal) > 0
}

func (m *Mover) removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	if err := os.Remove(dir); err != nil {
		m.logger.Debug("could not remove empty folder", "dir", dir, "error", err)
	}
}

// destinationName applies an optional suggested name, keeping the original
// extension unless the suggestion already carries it.
func destinationName(original, suggested string) string {
	suggested = strings.TrimSpace(suggested)
	if suggested == "" {
		return original
	}
	ext := filepath.Ext(original)
	if ext != "" && !strings.EqualFold(filepath.Ext(suggested), ext) {
		return suggested + ext
	}
	return suggested
}

// resolveCollision appends " (n)" before the extension until the path is
// free, matching the desktop convention.
func resolveCollision(path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path, nil
	} else if err != nil {
		return "", fmt.Errorf("failed to check destination: %w", err)
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("failed to check destination: %w", err)
		}
	}
}
