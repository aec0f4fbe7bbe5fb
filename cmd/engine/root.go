package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "Usage insight and credit ledger engine",
	Long: `Turns household power readings into ranked saving insights and keeps
each user's billing-cycle credit position.

Configuration comes from the environment (or a .env file) with an
optional TOML overlay named by CONFIG_FILE.`,
	SilenceUsage: true,
}
