// Package cmd implements the sahayak command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is stamped by the build via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "sahayak",
	Short: "Sahayak - multilingual campus assistant",
	Long: `Sahayak answers student questions about campus life in their own
language, grounded in the institution's FAQ knowledge base.

Run "sahayak serve" to start the HTTP API, or "sahayak ask" to talk to
the assistant from the terminal.`,
	SilenceUsage: true,
	Version:      Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
