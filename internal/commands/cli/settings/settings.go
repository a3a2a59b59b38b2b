// Package settings provides the config inspection and editing commands.
package settings

import (
	"fmt"
	"strings"

	"github.com/andrei-cloud/go_onecode/internal/commands/cli/cmdutil"
	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration",
		Long: `Inspect and edit the effective configuration. Keys are dot-separated
paths such as build.parallel_jobs or plugins.colcon.extra.`,
	}

	// Add subcommands.
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newSaveCommand())

	return cmd
}

type missingKey struct{}

// Format renders a configuration value: scalars as text, everything else as YAML.
func Format(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "null", nil
	case string, bool, int, int64, float64:
		return fmt.Sprint(v), nil
	}

	out, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}

	return strings.TrimSuffix(string(out), "\n"), nil
}

// ParseValue decodes a command line value as YAML so numbers, booleans,
// null and lists keep their type. Anything that does not parse stays a string.
func ParseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}

	return v
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value of a configuration key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}

			v := a.Config.Get(args[0], missingKey{})
			if _, missing := v.(missingKey); missing {
				return fmt.Errorf("%s: %w", args[0], errorcodes.ErrInvalidKey)
			}

			out, err := Format(v)
			if err != nil {
				return err
			}
			cmd.Println(out)

			return nil
		},
	}
}

func newSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration key and save the user configuration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}

			if err := a.Config.Set(args[0], ParseValue(args[1])); err != nil {
				return err
			}

			if noSave, _ := cmd.Flags().GetBool("no-save"); noSave {
				return nil
			}

			file, _ := cmd.Flags().GetString("file")

			return a.Config.Save(file)
		},
	}

	cmd.Flags().String("file", "", "Document to save to (default: the loaded user configuration)")
	cmd.Flags().Bool("no-save", false, "Change the value for this invocation only")

	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(a.Config.Snapshot())
			if err != nil {
				return err
			}
			if file := a.Config.File(); file != "" {
				cmd.Printf("# %s\n", file)
			}
			cmd.Print(string(out))

			return nil
		},
	}
}

func newSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save [PATH]",
		Short: "Write the effective configuration to a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			}

			return a.Config.Save(path)
		},
	}
}
