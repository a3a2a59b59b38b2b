// Package ros provides the ros2 passthrough command.
package ros

import (
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/cmdutil"
	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/spf13/cobra"
)

// NewROS2Command creates the ros2 passthrough command. Every argument after
// "ros2" is handed to the ros2 tool unchanged and its exit code is returned.
func NewROS2Command() *cobra.Command {
	return &cobra.Command{
		Use:                "ros2 [args...]",
		Short:              "Run a ros2 command",
		Example:            "  onecode ros2 topic list",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}

			return errorcodes.Exit(a.ROS2.Run(args))
		},
	}
}
