package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrei-cloud/go_onecode/internal/plugins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolsManifest = `name: tools
description: Shell helpers
requires: [sh]
commands:
  - name: say
    description: Print text
    run: [sh, -c, 'echo "$0"', "{text}"]
  - name: fail
    run: [sh, -c, "exit 3"]
`

// sandbox isolates HOME and the plugin search path for one test.
func sandbox(t *testing.T) (home, pluginDir string) {
	t.Helper()

	home = t.TempDir()
	pluginDir = t.TempDir()
	for file, content := range map[string]string{
		"colcon_plugin.yaml": "name: colcon\n",
		"sim_plugin.yaml":    "name: simulation\n",
		"tools_plugin.yaml":  toolsManifest,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(pluginDir, file), []byte(content), 0o644))
	}

	t.Setenv("HOME", home)
	t.Setenv(plugins.EnvPluginPath, pluginDir)
	for _, key := range []string{"ONECODE_BUILD_TYPE", "ONECODE_PARALLEL_JOBS", "ONECODE_LOG_LEVEL", "ONECODE_LOG_FILE"} {
		t.Setenv(key, "")
	}

	return home, pluginDir
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, &stdout, &stderr)

	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	sandbox(t)

	code, out, _ := execute(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "OneCode Plant CLI v"+Version+"\n")
}

func TestPluginList(t *testing.T) {
	sandbox(t)

	for _, args := range [][]string{{"plugin", "list"}, {"plugins"}} {
		code, out, _ := execute(t, args...)
		assert.Equal(t, 0, code)
		assert.Contains(t, out, "Plugin")
		assert.Contains(t, out, "colcon")
		assert.Contains(t, out, "simulation")
		assert.Contains(t, out, "tools")
		assert.Contains(t, out, "requires=[sh]")
	}
}

func TestPluginRun(t *testing.T) {
	sandbox(t)

	code, out, errOut := execute(t, "plugin", "run", "tools", "say", "text=hello world")
	assert.Equal(t, 0, code)
	assert.Equal(t, "hello world\n", out)
	assert.NotContains(t, errOut, "Error:")

	code, _, errOut = execute(t, "plugin", "run", "tools", "fail")
	assert.Equal(t, 3, code)
	assert.NotContains(t, errOut, "Error:")

	code, _, errOut = execute(t, "plugin", "run", "ghost", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "plugin not found")

	code, _, errOut = execute(t, "plugin", "run", "tools", "say", "oops")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "key=value")
}

func TestPluginInfoAndReload(t *testing.T) {
	sandbox(t)

	code, out, _ := execute(t, "plugin", "info", "tools")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "name: tools")
	assert.Contains(t, out, "tools: Shell helpers")

	code, out, _ = execute(t, "plugin", "info", "tools", "say")
	assert.Equal(t, 0, code)
	assert.Equal(t, "say: Print text\n", out)

	code, out, _ = execute(t, "plugin", "info", "colcon", "--schema")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "config_schema:")

	code, _, errOut := execute(t, "plugin", "info", "ghost")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "plugin not found")

	code, out, _ = execute(t, "plugin", "reload", "tools")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Reloaded plugin tools\n", out)
}

func TestPluginCreate(t *testing.T) {
	home, _ := sandbox(t)

	code, out, _ := execute(t, "plugin", "create", "Lint", "--tool", "flake8", "-d", "Python linting")
	require.Equal(t, 0, code)

	path := filepath.Join(home, ".onecode", "plugins", "lint_plugin.yaml")
	assert.Contains(t, out, path)

	m, err := plugins.ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "lint", m.Name)
	assert.Equal(t, "Python linting", m.Description)
	assert.Equal(t, []string{"flake8"}, m.Requires)

	code, _, errOut := execute(t, "plugin", "create", "lint")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already exists")

	code, _, _ = execute(t, "plugin", "create", "bad-name")
	assert.Equal(t, 1, code)

	code, out, _ = execute(t, "plugins")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "lint")
}

func TestConfigCommands(t *testing.T) {
	home, _ := sandbox(t)

	code, out, _ := execute(t, "config", "get", "build.cmake_build_type")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Release\n", out)

	code, _, _ = execute(t, "config", "set", "build.parallel_jobs", "8")
	require.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(home, ".config", "onecode", "config.yaml"))

	code, out, _ = execute(t, "config", "get", "build.parallel_jobs")
	assert.Equal(t, 0, code)
	assert.Equal(t, "8\n", out)

	code, _, _ = execute(t, "config", "set", "plugins.colcon.mixins", "[ccache, lld]", "--no-save")
	assert.Equal(t, 0, code)

	code, _, errOut := execute(t, "config", "set", "build.nope", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid config key")

	code, _, errOut = execute(t, "config", "get", "nope.key")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid config key")

	code, out, _ = execute(t, "config", "show")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "parallel_jobs: 8")

	saved := filepath.Join(t.TempDir(), "copy.yaml")
	code, _, _ = execute(t, "config", "save", saved)
	assert.Equal(t, 0, code)
	assert.FileExists(t, saved)

	code, out, _ = execute(t, "--config", saved, "config", "get", "build")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "parallel_jobs: 8")
}

func TestBuildAndSimFailWithoutTools(t *testing.T) {
	sandbox(t)
	t.Setenv("PATH", t.TempDir())

	for _, args := range [][]string{
		{"build", "workspace", "--workspace", t.TempDir()},
		{"build", "list"},
		{"sim", "start", "--headless"},
		{"sim", "spawn", "rover"},
		{"sim", "stop"},
	} {
		code, _, _ := execute(t, args...)
		assert.Equal(t, 1, code, args)
	}

	code, _, _ := execute(t, "ros2", "topic", "list")
	assert.Equal(t, 127, code)
}

func TestBuildCleanRemovesDirectories(t *testing.T) {
	sandbox(t)

	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "colcon"), []byte("#!/bin/sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	ws := t.TempDir()
	for _, d := range []string{"src", "build", "install", "log"} {
		require.NoError(t, os.MkdirAll(filepath.Join(ws, d), 0o755))
	}

	code, _, _ := execute(t, "build", "clean", "--workspace", ws, "--all")
	assert.Equal(t, 0, code)
	for _, d := range []string{"build", "install", "log"} {
		assert.NoDirExists(t, filepath.Join(ws, d))
	}
	assert.DirExists(t, filepath.Join(ws, "src"))
}

func TestUnknownCommandAndInterrupt(t *testing.T) {
	sandbox(t)

	code, _, errOut := execute(t, "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error: unknown command")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 130, Run(ctx, []string{"version"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Operation cancelled by user")
}
