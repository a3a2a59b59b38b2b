// Package process executes external tools and normalizes their outcome into a Result.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/andrei-cloud/go_onecode/internal/logging"
	"github.com/rs/zerolog"
)

// DefaultKillGrace is the time a timed-out process gets between SIGTERM and SIGKILL.
const DefaultKillGrace = 5 * time.Second

//go:generate mockgen -destination=mocks/mock_runner.go -package=mocks github.com/andrei-cloud/go_onecode/internal/process Runner

// Runner executes one external command vector at a time.
type Runner interface {
	Run(cmd []string, opts Options) Result
}

// Options controls a single invocation.
type Options struct {
	Capture bool              // collect stdout/stderr instead of streaming them
	Dir     string            // working directory, empty for the current one
	Env     map[string]string // overrides merged over the current environment
	Timeout time.Duration     // zero means no timeout
}

// Result is the normalized outcome of an invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Command  []string
}

// Success reports whether the exit code is zero.
func (r Result) Success() bool {
	return r.ExitCode == errorcodes.ExitSuccess
}

// ExecRunner runs commands on the local host through os/exec.
type ExecRunner struct {
	// LookPath resolves tool names; exec.LookPath when nil.
	LookPath func(file string) (string, error)
	// Stdin, Stdout and Stderr are inherited in streamed mode.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// KillGrace bounds the wait after SIGTERM before a timed-out process is killed.
	KillGrace time.Duration

	logger zerolog.Logger
}

// NewRunner returns an ExecRunner bound to the caller's terminal streams.
func NewRunner() *ExecRunner {
	return &ExecRunner{
		LookPath:  exec.LookPath,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		KillGrace: DefaultKillGrace,
		logger:    logging.Component("process"),
	}
}

// Available reports whether the named tool can be found on the execution path.
func (r *ExecRunner) Available(tool string) bool {
	_, err := r.lookPath(tool)
	return err == nil
}

func (r *ExecRunner) lookPath(tool string) (string, error) {
	if r.LookPath != nil {
		return r.LookPath(tool)
	}

	return exec.LookPath(tool)
}

// Run executes cmd. Missing tools short-circuit with 127, timeouts yield 124,
// start failures collapse to 1; otherwise the process exit code is returned as is.
func (r *ExecRunner) Run(cmd []string, opts Options) Result {
	command := append([]string(nil), cmd...)

	if len(command) == 0 {
		return Result{
			ExitCode: errorcodes.ExitFailure,
			Stderr:   "Unexpected error: empty command",
			Command:  command,
		}
	}

	if _, err := r.lookPath(command[0]); err != nil {
		r.logger.Debug().Str("tool", command[0]).Msg("tool not found on PATH")

		return Result{
			ExitCode: errorcodes.ExitToolNotFound,
			Stderr:   errorcodes.ErrToolNotAvailable.Description,
			Command:  command,
		}
	}

	r.logger.Debug().Strs("command", command).Str("dir", opts.Dir).Msg("executing command")

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, command[0], command[1:]...)
	c.Dir = opts.Dir
	c.Env = mergeEnv(opts.Env)
	c.Cancel = func() error {
		return signalGroup(c.Process, syscall.SIGTERM)
	}
	c.WaitDelay = r.killGrace()

	var stdout, stderr bytes.Buffer
	if opts.Capture {
		// Streamed commands stay in the terminal's group to receive Ctrl-C.
		setProcessGroup(c)
		c.Stdout = &stdout
		c.Stderr = &stderr
	} else {
		c.Stdin = r.Stdin
		c.Stdout = r.Stdout
		c.Stderr = r.Stderr
	}

	err := c.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.logger.Error().
			Strs("command", command).
			Dur("timeout", opts.Timeout).
			Msg("command timed out")

		return Result{
			ExitCode: errorcodes.ExitTimeout,
			Stdout:   stdout.String(),
			Stderr:   fmt.Sprintf("Command timed out after %s", opts.Timeout),
			Command:  command,
		}
	}

	res := Result{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Command: command,
	}

	switch {
	case err == nil:
		res.ExitCode = errorcodes.ExitSuccess
	case errors.Is(err, exec.ErrWaitDelay) && c.ProcessState != nil:
		res.ExitCode = c.ProcessState.ExitCode()
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitCode(exitErr)
			r.logger.Debug().
				Strs("command", command).
				Int("exit_code", res.ExitCode).
				Msg("command exited with non-zero status")

			break
		}

		r.logger.Error().Err(err).Strs("command", command).Msg("unexpected error executing command")

		return Result{
			ExitCode: errorcodes.ExitFailure,
			Stderr:   fmt.Sprintf("Unexpected error: %v", err),
			Command:  command,
		}
	}

	return res
}

func (r *ExecRunner) killGrace() time.Duration {
	if r.KillGrace > 0 {
		return r.KillGrace
	}

	return DefaultKillGrace
}

// exitCode follows the shell convention of 128+N for signal terminations.
func exitCode(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}

	return exitErr.ExitCode()
}

// mergeEnv overlays overrides on the current environment; nil keeps exec's default.
func mergeEnv(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(os.Environ())+len(keys))
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[name]; ok {
			continue
		}
		env = append(env, kv)
	}
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}

	return env
}
