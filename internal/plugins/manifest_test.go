package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andrei-cloud/go_onecode/internal/process"
	"github.com/andrei-cloud/go_onecode/internal/process/mocks"
	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lintManifest = `name: lint
description: Run linters
version: 0.3.0
requires: [flake8]
commands:
  - name: check
    description: Lint one path
    run: [flake8, "{path}", "--max-line-length={width}"]
    timeout: 30s
  - name: version
    run: [flake8, --version]
`

func writeManifest(t *testing.T, dir, file, content string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestManifestPluginRunsCommands(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().
		Run([]string{"flake8", "src/pkg", "--max-line-length=100"}, process.Options{Timeout: 30 * time.Second}).
		Return(process.Result{ExitCode: 2})

	dir := t.TempDir()
	writeManifest(t, dir, "lint_plugin.yaml", lintManifest)

	deps := Deps{
		Runner:   runner,
		LookPath: func(string) (string, error) { return "/usr/bin/flake8", nil },
	}
	r := NewRegistry(deps, WithLogger(zerolog.Nop()), WithSearchPaths(dir))

	loaded, _ := r.LoadAll()
	require.Equal(t, 1, loaded)

	p, ok := r.Get("lint")
	require.True(t, ok)
	assert.Equal(t, "Run linters", p.Description())
	assert.Equal(t, "0.3.0", p.Version())
	assert.Equal(t, []string{"check", "version"}, p.Commands())
	assert.True(t, p.IsAvailable())
	assert.Equal(t, "check: Lint one path", Help(p, "check"))

	code, err := p.Operations()["check"](context.Background(), Args{"path": "src/pkg", "width": 100})
	require.NoError(t, err)
	assert.Equal(t, 2, code)
}

func TestManifestPluginMissingArgument(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)

	m, err := ReadManifest(writeManifest(t, t.TempDir(), "lint_plugin.yaml", lintManifest))
	require.NoError(t, err)

	p := newManifestPlugin(m, Deps{Runner: runner})
	code, err := p.Operations()["check"](context.Background(), Args{"path": "src"})
	require.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, err.Error(), "width")
}

func TestExpand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		run     []string
		args    Args
		want    []string
		wantErr string
	}{
		{"scalar", []string{"echo", "{text}"}, Args{"text": "hi"}, []string{"echo", "hi"}, ""},
		{"number inside word", []string{"tool", "--jobs={n}"}, Args{"n": 4}, []string{"tool", "--jobs=4"}, ""},
		{"list spliced", []string{"echo", "{args}", "end"}, Args{"args": []string{"a", "b"}}, []string{"echo", "a", "b", "end"}, ""},
		{"any list spliced", []string{"echo", "{args}"}, Args{"args": []any{"a", 2}}, []string{"echo", "a", "2"}, ""},
		{"empty list", []string{"echo", "{args}"}, Args{"args": []string{}}, []string{"echo"}, ""},
		{"list inside word", []string{"echo", "--pkgs={args}"}, Args{"args": []string{"a", "b"}}, nil, "args"},
		{"missing", []string{"echo", "{text}"}, Args{}, nil, "missing arguments: text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := expand(tt.run, tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManifestPluginAvailabilityIsCached(t *testing.T) {
	t.Parallel()

	m, err := ReadManifest(writeManifest(t, t.TempDir(), "lint_plugin.yaml", lintManifest))
	require.NoError(t, err)

	lookups := 0
	present := false
	p := newManifestPlugin(m, Deps{LookPath: func(string) (string, error) {
		lookups++
		if present {
			return "/bin/flake8", nil
		}

		return "", errors.New("not found")
	}})

	assert.False(t, p.IsAvailable())
	present = true
	assert.False(t, p.IsAvailable())
	assert.Equal(t, 1, lookups)

	p.probe.Invalidate()
	assert.True(t, p.IsAvailable())
	assert.Equal(t, 2, lookups)
}

func TestReadManifestValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"empty run", "name: x\ncommands:\n  - name: a\n    run: []\n"},
		{"duplicate", "name: x\ncommands:\n  - name: a\n    run: [echo]\n  - name: a\n    run: [echo]\n"},
		{"bad timeout", "name: x\ncommands:\n  - name: a\n    run: [echo]\n    timeout: soon\n"},
		{"unnamed", "name: x\ncommands:\n  - run: [echo]\n"},
		{"not yaml", "name: [x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ReadManifest(writeManifest(t, t.TempDir(), "x_plugin.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestMarkerManifestWithoutCommandsNeedsFactory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeManifest(t, dir, "marker_plugin.yaml", "name: marker\ndescription: compiled in\n")

	r := NewRegistry(Deps{}, WithLogger(zerolog.Nop()), WithSearchPaths(dir))
	loaded, discovered := r.LoadAll()
	assert.Equal(t, 0, loaded)
	assert.Equal(t, 1, discovered)

	r.RegisterFactory("marker_plugin", factoryFor(&fakePlugin{name: "marker"}))
	loaded, _ = r.LoadAll()
	assert.Equal(t, 1, loaded)
}

func TestArgs(t *testing.T) {
	t.Parallel()

	a := Args{"n": "4", "flag": "true", "f": 1.5, "list": []string{"a", "b"}, "one": "x", "nil": nil, "bad": "zz"}

	assert.Equal(t, 4, a.Int("n", 0))
	assert.Equal(t, 10, Args{"n": "010"}.Int("n", 0))
	assert.Equal(t, 9, Args{"n": "0x10"}.Int("n", 9))
	assert.Equal(t, 9, a.Int("bad", 9))
	assert.Equal(t, 9, a.Int("missing", 9))
	assert.True(t, a.Bool("flag", false))
	assert.InDelta(t, 1.5, a.Float("f", 0), 1e-9)
	assert.Equal(t, []string{"a", "b"}, a.Strings("list"))
	assert.Equal(t, []string{"x"}, a.Strings("one"))
	assert.Nil(t, a.Strings("missing"))
	assert.False(t, a.Has("nil"))
	assert.Equal(t, "def", a.String("nil", "def"))
}

func TestBaseDefaultsAndDefaultInfo(t *testing.T) {
	t.Parallel()

	p := &fakePlugin{name: "p", available: true}
	var b Base

	assert.True(t, b.ValidateArgs("any", nil))
	assert.Empty(t, b.ConfigSchema())
	assert.True(t, b.Configure(nil))
	assert.True(t, b.Setup())
	assert.True(t, b.Setup())
	assert.True(t, b.Cleanup())
	assert.Nil(t, b.Commands())

	info := DefaultInfo(p)
	assert.Equal(t, "p", info["name"])
	assert.Equal(t, "No description provided", info["description"])
	assert.Equal(t, "1.0.0", info["version"])
	assert.Equal(t, true, info["available"])
	assert.Contains(t, info, "commands")

	assert.Equal(t, "p: No description provided", Help(p, ""))
	assert.Equal(t, "No help available for command: x", Help(p, "x"))
}
