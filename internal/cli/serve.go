package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plumber-cd/ez-netmap/internal/api"
	"github.com/plumber-cd/ez-netmap/internal/domain"
	"github.com/plumber-cd/ez-netmap/internal/logging"
	"github.com/plumber-cd/ez-netmap/internal/store"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the views API from the local data dir",
		Example: `  # Serve on the default address
  ez-netmap serve

  # Serve another data dir on a custom port
  ez-netmap serve --data-dir /srv/netmap --listen :9090`,
		RunE: runServe,
	}
	cmd.Flags().Bool("watch", true, "track graph.yaml changes in the graph metrics")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Remote() {
		return errLocalOnly
	}
	watch, _ := cmd.Flags().GetBool("watch")

	// The server logs to stderr like any other daemon.
	logger, err := logging.New(cfg.LogLevel, "stderr")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	repo, err := store.Load(cfg.DataDir)
	if err != nil {
		return err
	}
	srv := api.NewServer(repo, logger)
	if g, err := repo.Graph(cmd.Context()); err != nil {
		logger.Warn("graph not loaded", zap.Error(err))
	} else {
		srv.ObserveGraph(g)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.ListenAndServe(egctx, cfg.Listen)
	})
	if watch {
		eg.Go(func() error {
			return store.WatchGraph(egctx, cfg.DataDir, logger, func(g *domain.Graph) {
				logger.Info("graph reloaded", zap.Int("nodes", len(g.Nodes)), zap.Int("links", len(g.Links)))
				srv.ObserveGraph(g)
			})
		})
	}
	return eg.Wait()
}
