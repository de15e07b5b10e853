package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"shelfwise/internal/common"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently organized files",
		RunE:  runHistory,
	}

	cmd.Flags().Int("limit", 20, "Maximum number of entries to show")
	cmd.Flags().Bool("logs", false, "Show the activity log instead of completed moves")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	showLogs, _ := cmd.Flags().GetBool("logs")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return common.NewUserError("history requires persistence; set history.path in your config", nil)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()

	if showLogs {
		entries, err := store.RecentLogs(ctx, limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No activity recorded yet.")
			return nil
		}
		for _, entry := range entries {
			marker := "✓"
			if !entry.Success {
				marker = "✗"
			}
			fmt.Printf("%s %s  %-30s %s\n",
				marker, entry.Timestamp.Local().Format("2006-01-02 15:04"),
				entry.FileName, entry.Message)
		}
		return nil
	}

	ops, err := store.RecentOperations(ctx, limit)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		fmt.Println("No files organized yet.")
		return nil
	}
	for _, op := range ops {
		fmt.Printf("%s  %-30s → %s\n",
			op.Timestamp.Local().Format("2006-01-02 15:04"),
			filepath.Base(op.Source),
			op.Destination)
		if op.Classification.Reason != "" {
			fmt.Printf("    %s\n", op.Classification.Reason)
		}
	}
	return nil
}
