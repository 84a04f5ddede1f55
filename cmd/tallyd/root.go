package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tallyd",
	Short: "tallyd - chat ledger ingestion core",
	Long: `Tallyd turns free-form chat messages into a per-group monetary ledger.

It extracts stated or computed totals from noisy text, applies admin
adjustments and clear commands, and protects the backing store with
admission control, per-key rate limits, and a bounded work queue.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}
