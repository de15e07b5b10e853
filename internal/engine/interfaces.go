package engine

import (
	"context"

	"shelfwise/internal/extract"
	"shelfwise/internal/llm"
	"shelfwise/internal/model"
)

// Classifier decides where a file belongs. Implemented by llm.Classifier.
type Classifier interface {
	Classify(ctx context.Context, meta model.FileMetadata, extracted string, existingFolders []string, userPrompt string, rename llm.RenameConfig) (model.Classification, error)
}

// Extractor pulls text content out of a file for the classification prompt.
type Extractor interface {
	Extract(path string) (extract.Result, error)
}

// Mover places files and maintains the undo journal.
type Mover interface {
	Organize(filePath string, classification model.Classification, baseDir string) (model.Operation, error)
	Undo() (*model.Operation, error)
	History() []model.Operation
	CanUndo() bool
}

// Notifier requests a user-visible notification; failures are logged only.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// AuditSink persists completed operations and log entries. Persistence
// failure never fails the pipeline.
type AuditSink interface {
	RecordOperation(ctx context.Context, op model.Operation) error
	RecordLog(ctx context.Context, entry model.LogEntry) error
}

// FolderWatcher is the per-root change source the engine drives.
type FolderWatcher interface {
	Start() error
	Stop()
}

// WatcherFactory builds a FolderWatcher for one folder config. The handler
// receives coalesced file-level event batches.
type WatcherFactory func(cfg model.FolderConfig, handler func(events []model.WatchEvent)) FolderWatcher
