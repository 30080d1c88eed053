package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/plumber-cd/ez-netmap/internal/domain"
	"go.uber.org/zap"
)

// WatchGraph calls onChange with the reloaded graph every time graph.yaml is written or
// replaced. It blocks until ctx is done. Graphs that fail to load are logged and skipped.
func WatchGraph(ctx context.Context, dir string, logger *zap.Logger, onChange func(*domain.Graph)) error {
	dataDir := filepath.Join(dir, DataDirName)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dataDir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors and writeYAML replace it by rename.
	if err := watcher.Add(dataDir); err != nil {
		return fmt.Errorf("watch %s: %w", dataDir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != GraphFileName {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			g, err := LoadGraph(dir)
			if err != nil {
				logger.Warn("reload graph", zap.String("path", event.Name), zap.Error(err))
				continue
			}
			logger.Debug("graph reloaded", zap.Int("nodes", len(g.Nodes)), zap.Int("links", len(g.Links)))
			onChange(g)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("graph watcher", zap.Error(err))
		}
	}
}
