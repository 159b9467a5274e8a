package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "sma-crossover",
	Short:         "Backtest an SMA crossover signal on one instrument traded through another",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config.yaml)")

	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(pairsCmd)
	rootCmd.AddCommand(serveCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
