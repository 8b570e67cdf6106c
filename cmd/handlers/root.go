package handlers

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "toolscout",
		Short: "Autonomous discovery and cataloging of AI developer tools",
		Long: `ToolScout - AI Developer Tool Research Agent

ToolScout plans its own search queries, discovers AI developer tools on the
web, validates them for quality, gathers community sentiment, and maintains
a growing JSON catalog.

Core workflows:
  • Server: run the HTTP API with live progress streaming
  • One-shot: run a single research pass from the command line

Examples:
  # Start the HTTP server
  toolscout serve

  # Run one research pass focused on testing tools
  toolscout research --focus "testing,code review"

  # List the current catalog
  toolscout tools`,
		Version: "0.3.0",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .toolscout.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewResearchCmd())
	rootCmd.AddCommand(NewToolsCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
