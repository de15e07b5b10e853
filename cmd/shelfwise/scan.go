package main

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"shelfwise/internal/config"
	"shelfwise/internal/engine"
	"shelfwise/internal/model"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [folder-id...]",
		Short: "Organize the existing backlog of configured folders",
		Long: `Run every file already sitting in the configured folders through
classification and filing, one folder at a time, then exit. With
arguments, only the named folder ids are scanned.`,
		RunE: runScan,
	}

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	targets, err := selectFolders(cfg, args)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no enabled folders to scan")
	}

	// One-shot mode: no filesystem watches, just the pipeline.
	eng, cleanup, err := buildEngine(cfg, slog.Default(), noopWatcherFactory)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, folder := range targets {
		eng.AddFolder(folder)
	}

	updates := eng.Subscribe()
	renderDone := make(chan struct{})
	go renderProgress(updates, renderDone)

	ctx := cmd.Context()
	for _, folder := range targets {
		eng.ScanExistingFiles(ctx, folder)
		if ctx.Err() != nil {
			break
		}
	}
	close(renderDone)

	snapshot := eng.Snapshot()
	organized := 0
	for _, entry := range snapshot.Log {
		if entry.Success {
			organized++
		}
	}
	slog.Info("✅ Scan complete", "organized", organized, "failed", len(snapshot.Log)-organized)
	return ctx.Err()
}

// selectFolders picks the enabled folders to scan, restricted to the given
// ids when any are named.
func selectFolders(cfg *config.Config, ids []string) ([]model.FolderConfig, error) {
	byID := make(map[string]model.FolderConfig, len(cfg.Folders))
	for _, folder := range cfg.Folders {
		byID[folder.ID] = folder
	}

	if len(ids) == 0 {
		var enabled []model.FolderConfig
		for _, folder := range cfg.Folders {
			if folder.Enabled {
				enabled = append(enabled, folder)
			}
		}
		return enabled, nil
	}

	var selected []model.FolderConfig
	for _, id := range ids {
		folder, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown folder id %q", id)
		}
		selected = append(selected, folder)
	}
	return selected, nil
}

// renderProgress drives a terminal progress bar from engine snapshots
// until done closes.
func renderProgress(updates <-chan engine.Snapshot, done <-chan struct{}) {
	var bar *progressbar.ProgressBar
	for {
		select {
		case snapshot := <-updates:
			p := snapshot.Progress
			if p.Idle() {
				if bar != nil {
					_ = bar.Finish()
					bar = nil
				}
				continue
			}
			if bar == nil {
				bar = progressbar.NewOptions(p.Total,
					progressbar.OptionSetDescription("organizing"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(p.Processed)
		case <-done:
			if bar != nil {
				_ = bar.Finish()
			}
			return
		}
	}
}
