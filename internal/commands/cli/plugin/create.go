// Package plugin provides plugin creation commands.
package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/andrei-cloud/go_onecode/internal/plugins"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var validName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new manifest plugin",
		Long: `Create a new manifest plugin. This will:
1. Write NAME_plugin.yaml into the plugin directory
2. Declare one example command running the given tool
The plugin is picked up the next time onecode starts.`,
		Args: cobra.ExactArgs(1),
		RunE: runCreatePlugin,
	}

	// Add flags.
	cmd.Flags().StringP("desc", "d", "", "Plugin description")
	cmd.Flags().StringP("version", "V", "0.1.0", "Plugin version")
	cmd.Flags().String("tool", "echo", "Tool the example command runs")
	cmd.Flags().String("dir", "", "Plugin directory (default ~/.onecode/plugins)")
	cmd.Flags().Bool("force", false, "Overwrite an existing manifest")

	return cmd
}

// Scaffold returns the manifest a new plugin starts from.
func Scaffold(name, desc, version, tool string) plugins.Manifest {
	if desc == "" {
		desc = fmt.Sprintf("%s commands", name)
	}

	return plugins.Manifest{
		Name:        name,
		Description: desc,
		Version:     version,
		Requires:    []string{tool},
		Commands: []plugins.ManifestCommand{{
			Name:        "run",
			Description: fmt.Sprintf("Run %s with the given args", tool),
			Run:         []string{tool, "{args}"},
			Timeout:     "5m",
		}},
	}
}

func runCreatePlugin(cmd *cobra.Command, args []string) error {
	name := strings.TrimSuffix(strings.ToLower(args[0]), "_plugin")
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid plugin name %q: use lowercase letters, digits and underscores", args[0])
	}

	desc, _ := cmd.Flags().GetString("desc")
	version, _ := cmd.Flags().GetString("version")
	tool, _ := cmd.Flags().GetString("tool")
	dir, _ := cmd.Flags().GetString("dir")
	force, _ := cmd.Flags().GetBool("force")

	if dir == "" {
		dir = plugins.UserPluginDir()
		if dir == "" {
			return errors.New("cannot determine the home directory, pass --dir")
		}
	}

	// 1. Create the plugin directory.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create plugin directory: %w", err)
	}

	path := filepath.Join(dir, name+"_plugin.yaml")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	// 2. Write the manifest.
	data, err := yaml.Marshal(Scaffold(name, desc, version, tool))
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}

	cmd.Printf("Successfully created plugin %s at %s\n", name, path)

	return nil
}
