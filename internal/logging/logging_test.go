package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARNING", zerolog.WarnLevel},
		{"warn", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"CRITICAL", zerolog.FatalLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInitLoggerRetargetsComponentLoggers(t *testing.T) {
	// Mutates the global logger; not parallel.
	logger := Component("test")

	var first, second bytes.Buffer
	require.NoError(t, InitLogger(Options{Level: "DEBUG", Out: &first}))
	logger.Info().Msg("one")

	require.NoError(t, InitLogger(Options{Level: "DEBUG", Out: &second}))
	logger.Info().Msg("two")

	assert.Contains(t, first.String(), `"message":"one"`)
	assert.Contains(t, first.String(), `"component":"test"`)
	assert.NotContains(t, first.String(), "two")
	assert.Contains(t, second.String(), `"message":"two"`)

	require.NoError(t, InitLogger(Options{Level: "ERROR", Out: &second}))
	logger.Info().Msg("suppressed")
	assert.NotContains(t, second.String(), "suppressed")

	require.NoError(t, InitLogger(Options{Level: "INFO", Out: os.Stderr}))
}

func TestInitLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "onecode.log")

	var console bytes.Buffer
	require.NoError(t, InitLogger(Options{Level: "INFO", Out: &console, File: path}))
	fileLogger := Component("file")
	fileLogger.Warn().Msg("to both")

	require.NoError(t, InitLogger(Options{Level: "INFO", Out: os.Stderr}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, console.String(), "to both")
}

func TestInitLoggerRejectsBadSize(t *testing.T) {
	dir := t.TempDir()
	err := InitLogger(Options{File: filepath.Join(dir, "x.log"), MaxFileSize: "lots"})
	assert.Error(t, err)
}

func TestMegabytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, megabytes(0))
	assert.Equal(t, 1, megabytes(1))
	assert.Equal(t, 10, megabytes(10_000_000))
	assert.Equal(t, 2, megabytes(1024*1024+1))
}

func TestInitLoggerRotatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	require.NoError(t, InitLogger(Options{Level: "INFO", Out: io.Discard, File: path, MaxFileSize: "1MiB", BackupCount: 2}))
	t.Cleanup(func() { _ = InitLogger(Options{Level: "INFO", Out: os.Stderr}) })

	chunk := strings.Repeat("x", 600*1024)
	rotateLogger := Component("rotate")
	for range 3 {
		rotateLogger.Warn().Msg(chunk)
	}

	backups, err := filepath.Glob(filepath.Join(dir, "app-*.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, backups)
	assert.LessOrEqual(t, len(backups), 2)
	assert.FileExists(t, path)
}
