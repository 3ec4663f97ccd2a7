// Package cmd defines and implements the CLI commands for the feedvet
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedvet",
		Short: "Verify RSS/Atom feed URLs and extract cleaned entry titles.",
		Long: `feedvet probes candidate URLs for working RSS or Atom feeds.
Each URL is fetched, classified, and parsed under a bounded worker pool;
entry titles from valid feeds are normalized and written to a JSON report.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml and /etc/feedvet/)")

	cmd.AddCommand(newVerifyCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
