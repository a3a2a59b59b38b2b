// Package logging configures the zerolog logger shared by all components.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the logger level, output format and optional log file.
type Options struct {
	Level       string // DEBUG, INFO, WARNING, ERROR, CRITICAL (case-insensitive)
	Human       bool   // console output instead of JSON
	File        string // optional log file, written in addition to Out
	MaxFileSize string // rotation threshold for File, e.g. "10MB"
	BackupCount int    // rotated files kept next to File; 0 keeps all
	Out         io.Writer
}

var (
	sink     = &switchWriter{out: os.Stderr}
	fileOut  *lumberjack.Logger
	fileOutM sync.Mutex
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = zerolog.New(sink).With().Timestamp().Logger()
}

// InitLogger initializes the zerolog logger with the given options. It may be
// called more than once; loggers derived earlier keep working because all of
// them write through the same sink.
func InitLogger(opts Options) error {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Human {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}

	fileOutM.Lock()
	defer fileOutM.Unlock()

	if fileOut != nil {
		_ = fileOut.Close()
		fileOut = nil
	}

	if opts.File != "" {
		maxBytes, err := humanize.ParseBytes(defaultString(opts.MaxFileSize, "10MB"))
		if err != nil {
			return err
		}

		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    megabytes(maxBytes),
			MaxBackups: max(opts.BackupCount, 0),
		}
		// An empty write opens the file now so a bad path fails here.
		if _, err := lj.Write(nil); err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		fileOut = lj
		out = zerolog.MultiLevelWriter(out, lj)
	}

	sink.Set(out)
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	return nil
}

// ParseLevel maps configuration level names to zerolog levels. Unknown names fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "critical", "fatal":
		return zerolog.FatalLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child of the global logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

// megabytes rounds n up to lumberjack's MaxSize unit, with a minimum of one.
func megabytes(n uint64) int {
	const mb = 1024 * 1024

	return max(int((n+mb-1)/mb), 1)
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}

	return s
}

// switchWriter lets InitLogger retarget output without rebuilding loggers already handed out.
type switchWriter struct {
	mu  sync.RWMutex
	out io.Writer
}

func (w *switchWriter) Set(out io.Writer) {
	w.mu.Lock()
	w.out = out
	w.mu.Unlock()
}

func (w *switchWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.out.Write(p)
}

func (w *switchWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if lw, ok := w.out.(zerolog.LevelWriter); ok {
		return lw.WriteLevel(level, p)
	}

	return w.out.Write(p)
}
