package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/andrei-cloud/go_onecode/internal/logging"
	"github.com/rs/zerolog"
)

// DefaultStopGrace is the time StopAll waits after SIGTERM before killing a process.
const DefaultStopGrace = 5 * time.Second

// Handle tracks one asynchronously started process.
type Handle struct {
	Command []string

	cmd    *exec.Cmd
	done   chan struct{}
	err    error
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// PID returns the operating system process id.
func (h *Handle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return -1
	}

	return h.cmd.Process.Pid
}

// Done is closed once the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the outcome of a finished process. It blocks until the process exits.
func (h *Handle) Result() Result {
	<-h.done

	res := Result{Command: h.Command}
	if h.stdout != nil {
		res.Stdout = h.stdout.String()
		res.Stderr = h.stderr.String()
	}

	res.ExitCode = errorcodes.ExitSuccess
	if h.err != nil {
		var exitErr *exec.ExitError
		if errors.As(h.err, &exitErr) {
			res.ExitCode = exitCode(exitErr)
		} else {
			res.ExitCode = errorcodes.ExitFailure
		}
	}

	return res
}

// Supervisor owns the set of long-running processes started in the background.
type Supervisor struct {
	LookPath func(file string) (string, error)
	Stdout   io.Writer
	Stderr   io.Writer

	mu      sync.Mutex
	handles []*Handle
	logger  zerolog.Logger
}

// NewSupervisor returns a Supervisor that streams to the caller's terminal.
func NewSupervisor() *Supervisor {
	return &Supervisor{
		LookPath: exec.LookPath,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		logger:   logging.Component("supervisor"),
	}
}

// Start launches cmd without waiting for it and records the handle.
func (s *Supervisor) Start(cmd []string, opts Options) (*Handle, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("empty command: %w", errorcodes.ErrToolFailure)
	}

	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath(cmd[0]); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd[0], errorcodes.ErrToolNotAvailable)
	}

	c := exec.Command(cmd[0], cmd[1:]...)
	c.Dir = opts.Dir
	c.Env = mergeEnv(opts.Env)
	c.WaitDelay = DefaultStopGrace
	setProcessGroup(c)

	h := &Handle{
		Command: append([]string(nil), cmd...),
		cmd:     c,
		done:    make(chan struct{}),
	}

	if opts.Capture {
		h.stdout = &bytes.Buffer{}
		h.stderr = &bytes.Buffer{}
		c.Stdout = h.stdout
		c.Stderr = h.stderr
	} else {
		c.Stdout = s.Stdout
		c.Stderr = s.Stderr
	}

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %v: %w", cmd[0], err, errorcodes.ErrToolFailure)
	}

	go func() {
		h.err = c.Wait()
		close(h.done)
	}()

	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()

	s.logger.Info().Strs("command", h.Command).Int("pid", h.PID()).Msg("started background process")

	return h, nil
}

// Wait blocks until h exits, removes it from the owned set and returns its result.
func (s *Supervisor) Wait(h *Handle) Result {
	res := h.Result()
	s.remove(h)

	return res
}

// WaitAll blocks until every owned process has exited or ctx is done. It
// reports whether all of them exited. Exited handles are removed.
func (s *Supervisor) WaitAll(ctx context.Context) bool {
	s.mu.Lock()
	handles := append([]*Handle(nil), s.handles...)
	s.mu.Unlock()

	for _, h := range handles {
		select {
		case <-h.Done():
			s.remove(h)
		case <-ctx.Done():
			return false
		}
	}

	return true
}

// Len returns the number of owned handles.
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.handles)
}

// StopAll terminates every owned process group: SIGTERM, up to grace for a
// clean exit, then SIGKILL. Each handle is removed regardless of outcome. It returns
// the number of handles that were processed.
func (s *Supervisor) StopAll(grace time.Duration) int {
	if grace <= 0 {
		grace = DefaultStopGrace
	}

	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	for _, h := range handles {
		s.stop(h, grace)
	}

	return len(handles)
}

// Stop terminates the given handles the way StopAll does. Handles the
// supervisor no longer owns are skipped. It returns the number stopped.
func (s *Supervisor) Stop(grace time.Duration, handles ...*Handle) int {
	if grace <= 0 {
		grace = DefaultStopGrace
	}

	var owned []*Handle
	s.mu.Lock()
	for _, h := range handles {
		if i := slices.Index(s.handles, h); i >= 0 {
			s.handles = slices.Delete(s.handles, i, i+1)
			owned = append(owned, h)
		}
	}
	s.mu.Unlock()

	for _, h := range owned {
		s.stop(h, grace)
	}

	return len(owned)
}

func (s *Supervisor) stop(h *Handle, grace time.Duration) {
	select {
	case <-h.done:
		return
	default:
	}

	if err := signalGroup(h.cmd.Process, syscall.SIGTERM); err != nil {
		s.logger.Debug().Err(err).Int("pid", h.PID()).Msg("terminate signal failed")
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-h.done:
		s.logger.Debug().Int("pid", h.PID()).Msg("process terminated gracefully")
	case <-timer.C:
		s.logger.Warn().Int("pid", h.PID()).Msg("process did not terminate gracefully, forcing")
		if err := signalGroup(h.cmd.Process, syscall.SIGKILL); err != nil {
			s.logger.Error().Err(err).Int("pid", h.PID()).Msg("error stopping process")
		}
		<-h.done
	}
}

func (s *Supervisor) remove(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, owned := range s.handles {
		if owned == h {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			return
		}
	}
}
