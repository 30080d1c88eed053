// Package cli provides the ez-netmap command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plumber-cd/ez-netmap/internal/client"
	"github.com/plumber-cd/ez-netmap/internal/config"
	"github.com/plumber-cd/ez-netmap/internal/domain"
	"github.com/plumber-cd/ez-netmap/internal/logging"
	"github.com/plumber-cd/ez-netmap/internal/store"
)

// Version is set at build time.
var Version = "0.1.0"

// configKey is used to store config in context.
type configKey struct{}

// errLocalOnly is returned by commands that write the data dir directly.
var errLocalOnly = errors.New("this command works on the local data dir; unset --api-url")

// backend is where views and the graph come from: the local store or the views API.
type backend interface {
	domain.Persister
	domain.ViewReader
	domain.GraphSource
}

// NewRootCmd creates the root command. Without a subcommand it starts the browser.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ez-netmap",
		Short: "Browse network maps and save views of them",
		Long: `ez-netmap browses a network topology graph in the terminal.

Pin nodes, filter categories and save the result as a named view, either to
the local data dir or to an ez-netmap API server.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.RegisterFlags(rootCmd.PersistentFlags())
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newTUICommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newGraphCommand())

	return rootCmd
}

// Execute runs the root command and reports errors on stderr.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg, nil
	}
	return config.Load(cmd.Root().PersistentFlags())
}

// newLogger logs to the configured file, which keeps stderr free for command output.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func openBackend(cfg *config.Config, logger *zap.Logger) (backend, error) {
	if cfg.Remote() {
		logger.Info("using views API", zap.String("url", cfg.APIURL))
		c, err := client.New(cfg.APIURL, cfg.Timeout, client.DefaultBreakerConfig(), logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	s, err := store.Load(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load data dir: %w", err)
	}
	return s, nil
}
