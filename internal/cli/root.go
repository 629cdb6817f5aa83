// Package cli implements the timesheets CLI commands.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/craiga/timesheets/internal/app"
	"github.com/craiga/timesheets/internal/config"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "timesheets",
	Short: "Sync time-tracking data between Timing and Harvest",
	Long: `Timesheets copies time entries recorded in Timing into Harvest,
using Harvest project/task ids stored as custom fields on Timing projects.
Repeated runs over overlapping windows are idempotent.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.timesheets/config.yaml)")
	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(timingCmd)
}

// newApp builds the logger, loads config, and wires the app for one command.
func newApp(ctx context.Context) (*app.App, config.Config, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, cfg, err
	}
	a, err := app.New(ctx, logger, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return a, cfg, nil
}
