package plugin

import (
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/cmdutil"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run PLUGIN COMMAND [key=value...]",
		Short: "Run any plugin command",
		Long: `Run a plugin command directly. Arguments are passed as key=value pairs;
repeating a key passes a list.`,
		Example: `  onecode plugin run colcon build_workspace packages=talker packages=listener debug=true`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}

			pluginArgs, err := cmdutil.ParseKeyValues(args[2:])
			if err != nil {
				return err
			}

			return a.Run(cmd.Context(), args[0], args[1], pluginArgs)
		},
	}
}
