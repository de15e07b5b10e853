package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"shelfwise/internal/common"
	"shelfwise/internal/model"
	"shelfwise/internal/mover"
)

func undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Reverse the most recent file move",
		Long: `Move the most recently organized file back to where it came from.
Each invocation unwinds one move, newest first.`,
		RunE: runUndo,
	}
}

func runUndo(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return common.NewUserError("undo requires history persistence; set history.path in your config", nil)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	op, err := store.LatestUndoable(ctx)
	if err != nil {
		return err
	}
	if op == nil {
		fmt.Println("Nothing to undo.")
		return nil
	}

	revertErr := mover.New(slog.Default()).Revert(*op)

	// The operation is consumed either way; a destination that was moved
	// or deleted externally cannot be recovered by retrying.
	if err := store.MarkUndone(ctx, op.ID); err != nil {
		slog.Warn("failed to mark operation undone", "error", err)
	}

	logEntry := model.LogEntry{
		Timestamp: time.Now(),
		FileName:  filepath.Base(op.Destination),
		Success:   revertErr == nil,
	}
	if revertErr != nil {
		logEntry.Message = fmt.Sprintf("undo failed: %v", revertErr)
	} else {
		logEntry.Message = fmt.Sprintf("move undone, restored to %s", op.Source)
	}
	if err := store.RecordLog(ctx, logEntry); err != nil {
		slog.Warn("failed to persist log entry", "error", err)
	}

	if revertErr != nil {
		if errors.Is(revertErr, common.ErrDestinationMissing) {
			return common.NewUserError(fmt.Sprintf("cannot undo: %s no longer exists", op.Destination), nil)
		}
		return revertErr
	}

	fmt.Printf("Restored %s\n", op.Source)
	return nil
}
