// Package plugin provides plugin management commands.
package plugin

import "github.com/spf13/cobra"

// NewPluginCommand creates the main plugin command group.
func NewPluginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Plugin management commands",
		Long:  `Commands for listing, inspecting, reloading, running and creating onecode plugins.`,
	}

	// Add subcommands.
	cmd.AddCommand(NewListCommand("list"))
	cmd.AddCommand(NewInfoCommand())
	cmd.AddCommand(NewReloadCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewCreateCommand())

	return cmd
}
