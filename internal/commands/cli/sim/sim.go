// Package sim provides the simulation commands.
package sim

import (
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/cmdutil"
	"github.com/andrei-cloud/go_onecode/internal/process"
	"github.com/spf13/cobra"
)

const pluginName = "simulation"

// NewSimCommand creates the sim command group.
func NewSimCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Simulation commands",
		Long:  `Start, stop and populate Gazebo simulations.`,
	}

	// Add subcommands.
	cmd.AddCommand(newStartCommand())
	cmd.AddCommand(newStopCommand())
	cmd.AddCommand(newWorldsCommand())
	cmd.AddCommand(newSpawnCommand())

	return cmd
}

func newStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a simulation environment",
		Long: `Start the preferred installed simulator. Headless runs block until the
simulator exits. GUI runs return once the simulator is up; when
simulation.auto_close_on_exit is set, onecode stays attached and stops the
simulator on exit or interrupt.`,
		Args: cobra.NoArgs,
		RunE: runStart,
	}

	cmd.Flags().String("world", "", "World file to load")
	cmd.Flags().String("robot", "", "Robot model to spawn")
	cmd.Flags().Bool("headless", false, "Run simulation in headless mode")
	cmd.Flags().StringSlice("extra-args", nil, "Additional arguments passed to the simulator")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	a, err := cmdutil.App(cmd)
	if err != nil {
		return err
	}

	args := cmdutil.FlagArgs(cmd, "world", "robot", "headless", "extra-args")
	if err := a.Run(cmd.Context(), pluginName, "start_simulation", args); err != nil {
		return err
	}

	if a.Supervisor.Len() == 0 || !a.AutoClose() {
		return nil
	}

	cmd.Println("Simulation running, press Ctrl+C to stop")
	if !a.Supervisor.WaitAll(cmd.Context()) {
		a.Supervisor.StopAll(process.DefaultStopGrace)
	}

	return nil
}

func newStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the simulations started by this onecode process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}

			return a.Run(cmd.Context(), pluginName, "stop_simulation", nil)
		},
	}
}

func newWorldsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worlds",
		Short: "List available world files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}

			return a.Run(cmd.Context(), pluginName, "list_worlds", cmdutil.FlagArgs(cmd, "search-paths"))
		},
	}

	cmd.Flags().StringSlice("search-paths", nil, "Additional directories to search")

	return cmd
}

func newSpawnCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spawn ROBOT",
		Short: "Spawn a robot in the running simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}

			spawnArgs := cmdutil.FlagArgs(cmd, "x", "y", "z", "yaw")
			spawnArgs["robot"] = args[0]

			return a.Run(cmd.Context(), pluginName, "spawn_robot", spawnArgs)
		},
	}

	cmd.Flags().Float64("x", 0, "X position")
	cmd.Flags().Float64("y", 0, "Y position")
	cmd.Flags().Float64("z", 0, "Z position")
	cmd.Flags().Float64("yaw", 0, "Yaw rotation")

	return cmd
}
