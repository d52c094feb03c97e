package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carlospaes120/scapegoat/cmd/scapegoat/commands"
	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/logger"
)

var rootCmd = &cobra.Command{
	Use:   "scapegoat",
	Short: "scapegoat - windowed temporal network metrics",
	Long: `scapegoat - windowed temporal network metrics for interaction logs.

scapegoat slices a timestamped interaction log into sliding windows, builds a
directed graph per window and computes a battery of network metrics, community
partitions, escalation timelines and dose-response effects across windows.

Available commands:
  compute  - Run the metrics pipeline over an interaction CSV
  am       - Manage scapegoat configuration ("I am")
  runs     - List, inspect and delete stored runs
  version  - Show version information

Examples:
  scapegoat compute events.csv --target V001      # One case, 6h windows
  scapegoat compute --cases cases.toml            # Every case in a manifest
  scapegoat compute events.csv --watch            # Recompute on change
  scapegoat runs ls                               # Stored runs, newest first
  scapegoat am show --format yaml                 # Effective configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debugw("Logger initialized", "verbosity", logger.LevelName(verbosity))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Machine-readable output: JSON results on stdout, JSON logs on stderr")
	rootCmd.PersistentFlags().String("config", "", "Read configuration from this file only, skipping the cascade")

	rootCmd.AddCommand(commands.ComputeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.RunsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
