package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/plumber-cd/ez-netmap/internal/domain"
	"github.com/plumber-cd/ez-netmap/internal/store"
)

func newGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Manage the topology graph",
	}
	cmd.AddCommand(newGraphImportCommand())
	cmd.AddCommand(newGraphStatsCommand())
	return cmd
}

func newGraphImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a YAML or JSON graph and store it in the data dir",
		Example: `  # Import a topology export
  ez-netmap graph import topology.json`,
		Args: cobra.ExactArgs(1),
		RunE: runGraphImport,
	}
}

func runGraphImport(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Remote() {
		return errLocalOnly
	}

	bytes, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read graph: %w", err)
	}
	g, err := store.ParseGraph(bytes)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if err := store.SaveGraph(cfg.DataDir, g); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d nodes, %d links.\n", len(g.Nodes), len(g.Links))
	return err
}

func newGraphStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show node counts per category",
		RunE:  runGraphStats,
	}
}

func runGraphStats(cmd *cobra.Command, _ []string) error {
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
	g, err := b.Graph(ctx)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	logger.Debug("graph stats", zap.Int("nodes", len(g.Nodes)), zap.Int("links", len(g.Links)))

	out := cmd.OutOrStdout()
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(out, "%d nodes, %d links, %d orphans\n", len(g.Nodes), len(g.Links), countOrphans(g)); err != nil {
		return err
	}
	bars := categoryBars(g)
	if len(bars) == 0 {
		return nil
	}
	return pterm.DefaultBarChart.WithBars(bars).WithHorizontal().WithShowValue().WithWriter(out).Render()
}

// categoryBars counts nodes per category, in category order.
func categoryBars(g *domain.Graph) pterm.Bars {
	counts := make(map[string]int)
	for _, n := range g.Nodes {
		counts[n.Data.Category]++
	}
	var bars pterm.Bars
	for _, category := range g.Categories() {
		bars = append(bars, pterm.Bar{Label: category, Value: counts[category]})
	}
	return bars
}

func countOrphans(g *domain.Graph) int {
	orphans := 0
	for _, n := range g.Nodes {
		if g.IsOrphan(n.ID) {
			orphans++
		}
	}
	return orphans
}
