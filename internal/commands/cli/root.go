// Package cli provides the CLI command structure for onecode.
package cli

import (
	"fmt"

	"github.com/andrei-cloud/go_onecode/internal/app"
	"github.com/spf13/cobra"
)

// Version is the onecode release, overridden at build time with -ldflags.
var Version = "0.1.0"

type rootOptions struct {
	verbose    bool
	debug      bool
	configPath string
	logFormat  string
}

func (o rootOptions) level() string {
	switch {
	case o.debug:
		return "DEBUG"
	case o.verbose:
		return "INFO"
	default:
		return ""
	}
}

// NewRootCommand creates and returns the root command with all subcommands.
func NewRootCommand() (*cobra.Command, error) {
	var opts rootOptions

	rootCmd := &cobra.Command{
		Use:   "onecode",
		Short: "OneCode Plant - Intelligent ROS2 development tooling",
		Long: `A pluggable command line tool for ROS2 development. Commands are provided
by plugins: built-in ones for colcon builds and Gazebo simulation, and
manifest plugins discovered on the plugin search paths.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Initialize the application before running any command.
			a, err := app.New(app.Options{
				ConfigPath: opts.configPath,
				LogLevel:   opts.level(),
				LogFormat:  opts.logFormat,
				LogOut:     cmd.ErrOrStderr(),
				Out:        cmd.OutOrStdout(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize onecode: %w", err)
			}
			cmd.SetContext(app.NewContext(cmd.Context(), a))

			return nil
		},
	}

	// Add persistent flags that affect all commands.
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&opts.configPath, "config", "", "Path to config file")
	flags.StringVar(&opts.logFormat, "log-format", "human", "Logging format (human, json)")

	// Register all commands.
	if err := RegisterCommands(rootCmd); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	return rootCmd, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show OneCode Plant version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("OneCode Plant CLI v%s\n", Version)

			// Also show the ROS2 version if available.
			if a := app.FromContext(cmd.Context()); a != nil {
				if v := a.ROS2.Version(); v != "" {
					cmd.Printf("ROS2 Version: %s\n", v)
				}
			}

			return nil
		},
	}
}
