package plugin

import (
	"fmt"

	"github.com/andrei-cloud/go_onecode/internal/commands/cli/cmdutil"
	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/andrei-cloud/go_onecode/internal/plugins"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info NAME [COMMAND]",
		Short: "Show plugin details or help for one of its commands",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runInfo,
	}
	cmd.Flags().Bool("schema", false, "Print the plugin configuration schema")

	return cmd
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := cmdutil.App(cmd)
	if err != nil {
		return err
	}

	p, ok := a.Registry.Get(args[0])
	if !ok {
		return fmt.Errorf("%s: %w", args[0], errorcodes.ErrPluginNotFound)
	}

	if len(args) == 2 {
		cmd.Println(plugins.Help(p, args[1]))
		return nil
	}

	doc := plugins.Describe(p).Map()
	doc["help"] = plugins.Help(p, "")
	if schema, _ := cmd.Flags().GetBool("schema"); schema {
		if sp, ok := p.(plugins.SchemaProvider); ok {
			doc["config_schema"] = sp.ConfigSchema()
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	cmd.Print(string(out))

	return nil
}
