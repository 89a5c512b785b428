package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the BotecoPro operator CLI. Subcommands (bootstrap, space, user) are attached here.
var rootCmd = &cobra.Command{
	Use:           "botecopro",
	Short:         "BotecoPro operator CLI",
	Long:          "Operator utilities for BotecoPro (database bootstrap, boteco space provisioning, user lookup).",
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
