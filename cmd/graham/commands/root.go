package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	policyPath string
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "graham",
	Short: "graham - stock/bond allocation advisor",
	Long: `graham Unified CLI

Scores macro-market signals, maps the score to an equity target,
filters small moves against the previous target and sizes the
stock and bond trades of a portfolio.

Usage:
  go run ./cmd/graham [command]

Examples:
  go run ./cmd/graham recommend --holdings data/holdings.csv --explain
  go run ./cmd/graham recommend --live --policy config/policy.yaml
  go run ./cmd/graham breakdown --spx200 2 --yc -50 --vix 18
  go run ./cmd/graham state show
  go run ./cmd/graham serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&policyPath, "policy", "", "policy YAML file (default: $POLICY_PATH, else built-in defaults)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
