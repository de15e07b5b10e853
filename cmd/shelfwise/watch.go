package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"shelfwise/internal/common"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch configured folders and organize new files",
		Long: `Watch every enabled folder and run each new or changed file through
classification and filing. Runs until interrupted.`,
		RunE: runWatch,
	}

	cmd.Flags().Bool("scan", false, "Organize the existing backlog before watching")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	scanFirst, _ := cmd.Flags().GetBool("scan")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Folders) == 0 {
		return common.NewUserError("no folders configured; add a folders section to your config file", nil)
	}

	eng, cleanup, err := buildEngine(cfg, slog.Default(), nil)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, folder := range cfg.Folders {
		eng.AddFolder(folder)
	}
	eng.StartAll()

	ctx := cmd.Context()
	if scanFirst {
		eng.ScanAllExistingFiles(ctx)
	}

	slog.Info("👀 Watching folders, press Ctrl+C to stop",
		"folders", len(eng.Snapshot().WatchedPaths))

	<-ctx.Done()

	slog.Info("Stopping watchers...")
	eng.StopAll()
	return nil
}
