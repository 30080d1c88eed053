package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plumber-cd/ez-netmap/internal/export"
	"github.com/plumber-cd/ez-netmap/internal/store"
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render saved views to a markdown report",
		Example: `  # Write EZ-NETMAP.md into the data dir
  ez-netmap export

  # Print the report
  ez-netmap export -o -`,
		RunE: runExport,
	}
	cmd.Flags().StringP("output", "o", "", "report file, - for stdout (default <data-dir>/"+store.MarkdownFileName+")")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
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
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	views, err := b.ListViews(ctx)
	if err != nil {
		return fmt.Errorf("failed to list views: %w", err)
	}
	g, err := b.Graph(ctx)
	if err != nil {
		// The report falls back to raw node ids.
		logger.Warn("graph not loaded, exporting without node names", zap.Error(err))
	}

	md, err := export.RenderMarkdown(views, g)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), md)
		return err
	}
	if output == "" {
		output = filepath.Join(cfg.DataDir, store.MarkdownFileName)
	}
	if err := os.WriteFile(output, []byte(md), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info("exported views", zap.Int("views", len(views)), zap.String("path", output))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d views to %s\n", len(views), output)
	return err
}
