package plugin

import (
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/cmdutil"
	"github.com/spf13/cobra"
)

// NewReloadCommand creates the reload command.
func NewReloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reload NAME",
		Short: "Rebuild a plugin from its source",
		Long: `Rebuild a plugin from the file it was discovered as. The running instance
is replaced only when the new one loads, otherwise it stays in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cmdutil.App(cmd)
			if err != nil {
				return err
			}
			if err := a.Registry.Reload(args[0]); err != nil {
				return err
			}
			cmd.Printf("Reloaded plugin %s\n", args[0])

			return nil
		},
	}
}
