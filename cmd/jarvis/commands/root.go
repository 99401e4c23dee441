// Package commands implements the jarvis CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jarvis-agent/internal/app"
	"jarvis-agent/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jarvis",
		Short: "Jarvis - personal assistant gateway",
		Long: `Jarvis turns chat messages into agenda, task, expense and file actions.

Examples:
  jarvis serve
  jarvis digest
  jarvis classify "marcar dentista amanhã às 15h"`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newDigestCmd(),
		newClassifyCmd(),
	)

	return rootCmd
}

// buildApp loads configuration and wires the application.
func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(os.Stderr, cfg.LogLevel)
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	return a, nil
}
