// Package history persists completed operations and log entries so past
// organizer activity survives restarts. Within a running session the
// in-memory undo journal remains the source of truth for reversals; the
// store additionally tracks which persisted moves were undone so a later
// session can continue unwinding them.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shelfwise/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store implements the audit trail using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (and migrates) the history database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("history database path is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS operations (
	id TEXT PRIMARY KEY,
	timestamp DATETIME NOT NULL,
	source TEXT NOT NULL,
	destination TEXT NOT NULL,
	folder TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	suggested_name TEXT NOT NULL DEFAULT '',
	undone INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_operations_timestamp ON operations(timestamp);

CREATE TABLE IF NOT EXISTS log_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	file_name TEXT NOT NULL,
	message TEXT NOT NULL,
	success INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_log_entries_timestamp ON log_entries(timestamp);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// RecordOperation appends a completed move.
func (s *Store) RecordOperation(ctx context.Context, op model.Operation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (id, timestamp, source, destination, folder, reason, suggested_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		op.ID,
		op.Timestamp.UTC(),
		op.Source,
		op.Destination,
		op.Classification.Folder,
		op.Classification.Reason,
		op.Classification.SuggestedName,
	)
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}
	return nil
}

// RecordLog appends an engine log entry.
func (s *Store) RecordLog(ctx context.Context, entry model.LogEntry) error {
	success := 0
	if entry.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO log_entries (timestamp, file_name, message, success) VALUES (?, ?, ?, ?)`,
		entry.Timestamp.UTC(),
		entry.FileName,
		entry.Message,
		success,
	)
	if err != nil {
		return fmt.Errorf("failed to record log entry: %w", err)
	}
	return nil
}

// RecentOperations returns up to limit operations, newest first.
func (s *Store) RecentOperations(ctx context.Context, limit int) ([]model.Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, source, destination, folder, reason, suggested_name
		 FROM operations ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ops []model.Operation
	for rows.Next() {
		var op model.Operation
		var ts time.Time
		if err := rows.Scan(&op.ID, &ts, &op.Source, &op.Destination,
			&op.Classification.Folder, &op.Classification.Reason, &op.Classification.SuggestedName); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		op.Timestamp = ts
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}
	return ops, nil
}

// LatestUndoable returns the newest operation not yet marked undone, or
// nil when every recorded move has been reversed.
func (s *Store) LatestUndoable(ctx context.Context) (*model.Operation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, source, destination, folder, reason, suggested_name
		 FROM operations WHERE undone = 0 ORDER BY timestamp DESC, id DESC LIMIT 1`)

	var op model.Operation
	var ts time.Time
	err := row.Scan(&op.ID, &ts, &op.Source, &op.Destination,
		&op.Classification.Folder, &op.Classification.Reason, &op.Classification.SuggestedName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest operation: %w", err)
	}
	op.Timestamp = ts
	return &op, nil
}

// MarkUndone flags an operation as reversed so LatestUndoable skips it.
func (s *Store) MarkUndone(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE operations SET undone = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark operation undone: %w", err)
	}
	return nil
}

// RecentLogs returns up to limit log entries, newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]model.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, file_name, message, success
		 FROM log_entries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.LogEntry
	for rows.Next() {
		var entry model.LogEntry
		var ts time.Time
		var success int
		if err := rows.Scan(&ts, &entry.FileName, &entry.Message, &success); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entry.Timestamp = ts
		entry.Success = success == 1
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate log entries: %w", err)
	}
	return entries, nil
}
