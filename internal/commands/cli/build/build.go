// Package build provides the colcon workspace commands.
package build

import (
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/cmdutil"
	"github.com/spf13/cobra"
)

const pluginName = "colcon"

// NewBuildCommand creates the build command group.
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build commands for ROS2 packages",
		Long: `Build, test, clean and list the packages of a ROS2 workspace with colcon.
The workspace is found by walking up from the current directory unless
--workspace is given. Flags left unset fall back to the build section of
the configuration.`,
	}

	cmd.PersistentFlags().String("workspace", "", "Workspace root (default: detected from the current directory)")

	// Add subcommands.
	cmd.AddCommand(newWorkspaceCommand())
	cmd.AddCommand(newCleanCommand())
	cmd.AddCommand(newTestCommand())
	cmd.AddCommand(newListCommand())

	return cmd
}

// run dispatches command to the colcon plugin with the named flags as arguments.
func run(cmd *cobra.Command, command string, flags ...string) error {
	a, err := cmdutil.App(cmd)
	if err != nil {
		return err
	}

	args := cmdutil.FlagArgs(cmd, append(flags, "workspace")...)

	return a.Run(cmd.Context(), pluginName, command, args)
}

func newWorkspaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Build the entire workspace or specific packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, "build_workspace",
				"debug", "build-type", "packages", "parallel-jobs", "symlink-install",
				"continue-on-error", "cmake-args", "ament-cmake-args")
		},
	}

	cmd.Flags().Bool("debug", false, "Build in debug mode")
	cmd.Flags().String("build-type", "", "CMake build type (Debug, Release, RelWithDebInfo, MinSizeRel)")
	cmd.Flags().StringSlice("packages", nil, "Specific packages to build")
	cmd.Flags().IntP("parallel-jobs", "j", 0, "Number of parallel jobs")
	cmd.Flags().Bool("symlink-install", true, "Use symlink install")
	cmd.Flags().Bool("continue-on-error", false, "Continue building other packages on error")
	cmd.Flags().String("cmake-args", "", "Additional CMake arguments")
	cmd.Flags().String("ament-cmake-args", "", "Additional ament CMake arguments")

	return cmd
}

func newCleanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove workspace build artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}

			args := cmdutil.FlagArgs(cmd, "workspace")
			all, _ := cmd.Flags().GetBool("all")
			for _, dir := range []string{"build", "install", "log"} {
				on, _ := cmd.Flags().GetBool(dir)
				args[dir] = on || all
			}

			return a.Run(cmd.Context(), pluginName, "clean_workspace", args)
		},
	}

	cmd.Flags().Bool("build", true, "Clean the build directory")
	cmd.Flags().Bool("install", false, "Clean the install directory")
	cmd.Flags().Bool("log", false, "Clean the log directory")
	cmd.Flags().Bool("all", false, "Clean build, install and log")

	return cmd
}

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the tests of the workspace packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, "test_workspace", "packages", "parallel-jobs")
		},
	}

	cmd.Flags().StringSlice("packages", nil, "Specific packages to test")
	cmd.Flags().IntP("parallel-jobs", "j", 0, "Number of parallel jobs")

	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspace packages in topological order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, "list_packages")
		},
	}
}

