package engine

import (
	"context"
	"io/fs"
	"path/filepath"

	"shelfwise/internal/model"
)

// ScanExistingFiles enumerates the folder's backlog up to its watch depth
// and processes each file sequentially, one classify+move round-trip at a
// time, publishing progress after every file. Scans within one folder never
// overlap; the scan aborts early if the folder is removed mid-run.
func (e *Engine) ScanExistingFiles(ctx context.Context, cfg model.FolderConfig) {
	e.mu.Lock()
	if e.scanning[cfg.ID] {
		e.mu.Unlock()
		return
	}
	e.scanning[cfg.ID] = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.scanning, cfg.ID)
		e.mu.Unlock()
		e.setProgress(model.IdleProgress)
	}()

	backlog := e.collectBacklog(cfg)
	if len(backlog) == 0 {
		return
	}

	e.logger.Info("scanning existing files", "folder", cfg.Path, "count", len(backlog))
	e.setProgress(model.ScanProgress{Total: len(backlog)})

	for i, path := range backlog {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !e.folderRegistered(cfg.ID) {
			// Torn down mid-scan; do not process into a removed folder.
			return
		}

		name := filepath.Base(path)
		e.setProgress(model.ScanProgress{
			Processed:   i,
			Total:       len(backlog),
			CurrentFile: name,
		})

		if !e.tryReserve(path) {
			// Admitted by a live watch event while we were scanning.
			continue
		}
		e.processFile(cfg, path)
		e.releaseAfterCooldown(path)

		e.setProgress(model.ScanProgress{
			Processed:   i + 1,
			Total:       len(backlog),
			CurrentFile: name,
		})
	}
}

// ScanAllExistingFiles starts an independent backlog scan for every enabled
// folder. Scans across folders run concurrently.
func (e *Engine) ScanAllExistingFiles(ctx context.Context) {
	e.mu.Lock()
	configs := make([]model.FolderConfig, 0, len(e.folders))
	for _, f := range e.folders {
		if f.cfg.Enabled {
			configs = append(configs, f.cfg)
		}
	}
	e.mu.Unlock()

	for _, cfg := range configs {
		go e.ScanExistingFiles(ctx, cfg)
	}
}

// collectBacklog walks the folder tree up to the watch depth, applying the
// same name/extension gating as live events and skipping paths already in
// the in-flight/cooldown set.
func (e *Engine) collectBacklog(cfg model.FolderConfig) []string {
	var backlog []string

	_ = filepath.WalkDir(cfg.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == cfg.Path {
			return nil
		}
		if d.IsDir() {
			if isHiddenName(d.Name()) || !cfg.WithinDepth(filepath.Join(path, "x")) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHiddenName(d.Name()) || isTemporaryName(d.Name()) {
			return nil
		}
		if !cfg.WithinDepth(path) || !cfg.AllowsExtension(path) {
			return nil
		}
		if e.isPending(path) {
			return nil
		}
		backlog = append(backlog, path)
		return nil
	})

	return backlog
}

func (e *Engine) isPending(path string) bool {
	key := normalizePath(path)
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.pending[key]
	return busy
}

func (e *Engine) folderRegistered(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.folders[id]
	return ok
}
