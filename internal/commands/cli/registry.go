// Package cli provides centralized command registration.
package cli

import (
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/build"
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/plugin"
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/ros"
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/settings"
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/sim"
	"github.com/spf13/cobra"
)

// RegisterCommands registers all root commands.
func RegisterCommands(root *cobra.Command) error {
	// Root commands.
	root.AddCommand(build.NewBuildCommand())
	root.AddCommand(sim.NewSimCommand())
	root.AddCommand(plugin.NewPluginCommand())
	root.AddCommand(settings.NewConfigCommand())
	root.AddCommand(ros.NewROS2Command())
	root.AddCommand(newVersionCommand())

	// "onecode plugins" is the short form of "onecode plugin list".
	root.AddCommand(plugin.NewListCommand("plugins"))

	return nil
}
