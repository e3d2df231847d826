package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the Skillsight admin CLI. Subcommands
// (auth, bootstrap, seed, export) are attached here.
var rootCmd = &cobra.Command{
	Use:           "skillsight",
	Short:         "Skillsight admin CLI",
	Long:          "Administrative utilities for Skillsight (dev tokens, schema bootstrap, catalog seeds, audit export).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
