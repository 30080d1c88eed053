package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plumber-cd/ez-netmap/internal/store"
	"github.com/plumber-cd/ez-netmap/internal/ui"
)

func newTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse the network map in the terminal (default)",
		Long: `Open the terminal browser on the graph of the data dir, or of the API
server when --api-url is set. Local graphs are reloaded when graph.yaml changes.`,
		Example: `  # Browse the graph in the current directory
  ez-netmap

  # Save views to a remote server
  ez-netmap tui --api-url http://netmap.internal:8080`,
		RunE: runTUI,
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	b, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}

	app, err := ui.New(ui.Options{
		DataDir:   cfg.DataDir,
		Persister: b,
		Views:     b,
		Graphs:    b,
		Logger:    logger,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if !cfg.Remote() {
		go func() {
			if err := store.WatchGraph(ctx, cfg.DataDir, logger, app.QueueGraph); err != nil {
				logger.Error("graph watcher stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("starting browser", zap.String("dataDir", cfg.DataDir), zap.Bool("remote", cfg.Remote()))
	return app.Run()
}
