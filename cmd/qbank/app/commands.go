package app

import (
	"github.com/spf13/cobra"

	"github.com/certprep/qbank/cmd/qbank/cmd/importcmd"
	"github.com/certprep/qbank/cmd/qbank/cmd/orphans"
	"github.com/certprep/qbank/cmd/qbank/cmd/purge"
	"github.com/certprep/qbank/cmd/qbank/cmd/schema"
	"github.com/certprep/qbank/cmd/qbank/cmd/stats"
	"github.com/certprep/qbank/cmd/qbank/cmd/version"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(purge.NewCommand(a))
	rootCmd.AddCommand(orphans.NewCommand(a))
	rootCmd.AddCommand(importcmd.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(schema.NewCommand(a))
	rootCmd.AddCommand(stats.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(version.NewCommand(a))
}
