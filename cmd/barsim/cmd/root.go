package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "barsim",
	Short: "A deterministic bar-replay backtest engine",
	Long: `Barsim replays historical price bars through a trading strategy and
simulates the resulting fills with configurable commission and slippage
models. Every session is intraday-only: open positions are flattened at
each end-of-day boundary.

It provides tools for:
  - Running a backtest session from a YAML/JSON configuration
  - Importing CSV bar archives (.csv, .zip, .xz) into the SQLite bar store
  - Inspecting recorded sessions, orders and trades in a journal DB`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
