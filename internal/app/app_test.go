package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrei-cloud/go_onecode/internal/config"
	"github.com/andrei-cloud/go_onecode/internal/plugins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const echoManifest = `name: echo
description: Echo text
requires: [echo]
commands:
  - name: say
    run: [echo, "{text}"]
`

func newTestApp(t *testing.T, explicit string) (*App, *bytes.Buffer) {
	t.Helper()

	home := t.TempDir()
	pluginDir := t.TempDir()
	for file, content := range map[string]string{
		"colcon_plugin.yaml": "name: colcon\n",
		"sim_plugin.yaml":    "name: simulation\n",
		"echo_plugin.yaml":   echoManifest,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(pluginDir, file), []byte(content), 0o644))
	}

	var out bytes.Buffer
	a, err := New(Options{
		ConfigPath:  explicit,
		Out:         &out,
		PluginPaths: []string{pluginDir},
		SkipLogging: true,
		ConfigOptions: []config.Option{
			config.WithBundledPath(filepath.Join(home, "missing.yaml")),
			config.WithUserPath(filepath.Join(home, "config.yaml")),
		},
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return a, &out
}

func TestNewLoadsBuiltinAndManifestPlugins(t *testing.T) {
	a, out := newTestApp(t, "")

	assert.Equal(t, []string{"colcon", "echo", "simulation"}, a.Registry.Names())

	code := a.Execute(context.Background(), "echo", "say", map[string]any{"text": "hello"})
	assert.Equal(t, 0, code)
	assert.Equal(t, "hello\n", out.String())

	assert.Equal(t, 1, a.Execute(context.Background(), "ghost", "say", nil))
}

func TestNewLoadsBuiltinsOutsideSourceTree(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(plugins.EnvPluginPath, "")
	t.Chdir(t.TempDir())

	a, err := New(Options{
		Out:         &bytes.Buffer{},
		SkipLogging: true,
		ConfigOptions: []config.Option{
			config.WithBundledPath(filepath.Join(home, "missing.yaml")),
			config.WithUserPath(filepath.Join(home, "config.yaml")),
		},
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Equal(t, []string{"colcon", "simulation"}, a.Registry.Names())
}

func TestNewFailsOnMissingExplicitConfig(t *testing.T) {
	_, err := New(Options{
		ConfigPath:  filepath.Join(t.TempDir(), "nope.yaml"),
		SkipLogging: true,
		PluginPaths: []string{},
	})
	assert.Error(t, err)
}

func TestExplicitConfigReachesPlugins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onecode.yaml")
	require.NoError(t, os.WriteFile(path, []byte("build:\n  parallel_jobs: 6\nsimulation:\n  auto_close_on_exit: false\n"), 0o644))

	a, _ := newTestApp(t, path)
	assert.Equal(t, 6, a.Config.Get("build.parallel_jobs", nil))
	assert.False(t, a.AutoClose())
}

func TestInitLoggingUsesConfiguredFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "onecode.log")

	store := config.New()
	require.NoError(t, store.Set("logging.file", logFile))

	var stderr bytes.Buffer
	require.NoError(t, InitLogging(store, Options{LogLevel: "DEBUG", LogFormat: "json", LogOut: &stderr}))
	t.Cleanup(func() { _ = InitLogging(config.New(), Options{LogLevel: "WARNING", LogOut: os.Stderr}) })

	a := &App{Config: store}
	assert.True(t, a.AutoClose())
	assert.FileExists(t, logFile)
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	a := &App{}
	assert.Same(t, a, FromContext(NewContext(context.Background(), a)))
}
