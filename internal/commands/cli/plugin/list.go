// Package plugin provides plugin listing commands.
package plugin

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/andrei-cloud/go_onecode/internal/cli"
	"github.com/andrei-cloud/go_onecode/internal/commands/cli/cmdutil"
	"github.com/andrei-cloud/go_onecode/internal/plugins"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

const (
	columnPadding       = 3
	minDescriptionWidth = 20
)

// NewListCommand creates the list command under the given name.
func NewListCommand(use string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: "List loaded plugins",
		Long:  `List all loaded plugins with their availability, version and description.`,
		Args:  cobra.NoArgs,
		RunE:  runListPlugins,
	}
}

// Status renders the availability column.
func Status(available bool) string {
	if available {
		return okStyle.Render("✓ Loaded")
	}

	return failStyle.Render("✗ Unavailable")
}

func runListPlugins(cmd *cobra.Command, _ []string) error {
	a, err := cmdutil.App(cmd)
	if err != nil {
		return err
	}

	infos := a.Registry.List()
	if len(infos) == 0 {
		cmd.Println("No plugins loaded")
		return nil
	}

	descWidth := descriptionWidth(infos, cli.TerminalWidth())

	// Create tabwriter for aligned output.
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, columnPadding, ' ', 0)
	_, _ = fmt.Fprintln(w, "Plugin\tStatus\tVersion\tDescription")
	_, _ = fmt.Fprintln(w, "------\t------\t-------\t-----------")

	for _, info := range infos {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			info.Name,
			Status(info.Available),
			info.Version,
			cli.Truncate(info.Description, descWidth))
		if extra := formatExtra(info); extra != "" {
			_, _ = fmt.Fprintf(w, "\t%s\t\t\n", dimStyle.Render(extra))
		}
	}

	return w.Flush()
}

// descriptionWidth is what remains of width once the other columns are laid out.
func descriptionWidth(infos []plugins.Info, width int) int {
	name, version := len("Plugin"), len("Version")
	for _, info := range infos {
		name = max(name, lipgloss.Width(info.Name))
		version = max(version, lipgloss.Width(info.Version))
	}
	status := max(lipgloss.Width(Status(true)), lipgloss.Width(Status(false)))

	return max(width-name-status-version-3*columnPadding, minDescriptionWidth)
}

func formatExtra(info plugins.Info) string {
	keys := make([]string, 0, len(info.Extra))
	for k := range info.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, info.Extra[k]))
	}

	return strings.Join(parts, " ")
}
