package process

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunMissingToolShortCircuits(t *testing.T) {
	t.Parallel()

	looked := false
	r := &ExecRunner{LookPath: func(string) (string, error) {
		looked = true
		return "", errors.New("not found")
	}}

	res := r.Run([]string{"definitely-not-a-real-tool-xyz", "--version"}, Options{Capture: true})

	assert.True(t, looked)
	assert.Equal(t, errorcodes.ExitToolNotFound, res.ExitCode)
	assert.False(t, res.Success())
	assert.Equal(t, "tool not available", res.Stderr)
	assert.Empty(t, res.Stdout)
	assert.Equal(t, []string{"definitely-not-a-real-tool-xyz", "--version"}, res.Command)
}

func TestRunMissingToolOnRealPath(t *testing.T) {
	t.Parallel()

	res := NewRunner().Run([]string{"definitely-not-a-real-tool-xyz"}, Options{Capture: true})
	assert.Equal(t, 127, res.ExitCode)
	assert.False(t, res.Success())
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()

	start := time.Now()
	res := NewRunner().Run([]string{"sleep", "5"}, Options{Capture: true, Timeout: time.Second})

	assert.Equal(t, errorcodes.ExitTimeout, res.ExitCode)
	assert.False(t, res.Success())
	assert.Contains(t, res.Stderr, "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunExitCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cmd        []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "success",
			cmd:        []string{"sh", "-c", "echo hello"},
			wantCode:   0,
			wantStdout: "hello\n",
		},
		{
			name:     "exit three",
			cmd:      []string{"sh", "-c", "exit 3"},
			wantCode: 3,
		},
		{
			name:       "stderr with success code",
			cmd:        []string{"sh", "-c", "echo oops >&2"},
			wantCode:   0,
			wantStderr: "oops\n",
		},
		{
			name:     "empty vector",
			cmd:      nil,
			wantCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := NewRunner().Run(tt.cmd, Options{Capture: true})
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Equal(t, tt.wantCode == 0, res.Success())
			if tt.wantStdout != "" {
				assert.Equal(t, tt.wantStdout, res.Stdout)
			}
			if tt.wantStderr != "" {
				assert.Equal(t, tt.wantStderr, res.Stderr)
			}
		})
	}
}

func TestRunStartFailureCollapsesToOne(t *testing.T) {
	t.Parallel()

	// The lookup claims the tool exists, but exec cannot start it.
	r := &ExecRunner{LookPath: func(file string) (string, error) { return file, nil }}
	res := r.Run([]string{"/nonexistent/dir/tool"}, Options{Capture: true})

	assert.Equal(t, errorcodes.ExitFailure, res.ExitCode)
	assert.True(t, strings.HasPrefix(res.Stderr, "Unexpected error"))
}

func TestRunStreamedLeavesCapturedFieldsEmpty(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := NewRunner()
	r.Stdin = nil
	r.Stdout = &out
	r.Stderr = &out

	res := r.Run([]string{"sh", "-c", "echo streamed"}, Options{})

	require.True(t, res.Success())
	assert.Empty(t, res.Stdout)
	assert.Empty(t, res.Stderr)
	assert.Equal(t, "streamed\n", out.String())
}

func TestRunEnvAndDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	res := NewRunner().Run(
		[]string{"sh", "-c", `printf '%s|' "$ONECODE_TEST_VALUE"; pwd -P`},
		Options{Capture: true, Dir: dir, Env: map[string]string{"ONECODE_TEST_VALUE": "bar"}},
	)

	require.True(t, res.Success(), res.Stderr)
	assert.Equal(t, "bar|"+want+"\n", res.Stdout)
}

func TestMergeEnvOverridesExisting(t *testing.T) {
	t.Setenv("ONECODE_MERGE_TEST", "old")

	env := mergeEnv(map[string]string{"ONECODE_MERGE_TEST": "new"})

	var found []string
	for _, kv := range env {
		if strings.HasPrefix(kv, "ONECODE_MERGE_TEST=") {
			found = append(found, kv)
		}
	}
	assert.Equal(t, []string{"ONECODE_MERGE_TEST=new"}, found)
	assert.Nil(t, mergeEnv(nil))
	assert.GreaterOrEqual(t, len(env), len(os.Environ()))
}

func TestRunnerAvailable(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	assert.True(t, r.Available("sh"))
	assert.False(t, r.Available("definitely-not-a-real-tool-xyz"))
}
