package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/plumber-cd/ez-netmap/internal/domain"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved views",
		Example: `  # List views of the local data dir
  ez-netmap list

  # List views of a server as JSON
  ez-netmap list --api-url http://netmap.internal:8080 --json`,
		RunE: runList,
	}
	cmd.Flags().Bool("json", false, "print views as JSON")
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
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

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	if len(views) == 0 {
		_, err := fmt.Fprintln(out, "No saved views.")
		return err
	}

	data := pterm.TableData{{"ID", "Title", "Public", "Topology", "Pinned", "Last modified"}}
	for _, v := range views {
		modified := "-"
		if !v.LastModified.IsZero() {
			modified = v.LastModified.Format(time.RFC3339)
		}
		data = append(data, []string{
			v.ViewID,
			v.Title,
			yesNo(v.IsPublic),
			domain.RenderTopology(v.Topology),
			strconv.Itoa(len(v.Nodes)),
			modified,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).WithWriter(out).Render()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
