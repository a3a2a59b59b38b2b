// Package ros2 wraps the ros2 command line tool.
package ros2

import (
	"strings"
	"sync"

	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/andrei-cloud/go_onecode/internal/logging"
	"github.com/andrei-cloud/go_onecode/internal/process"
	"github.com/rs/zerolog"
)

const tool = "ros2"

// Interface runs ros2 subcommands through a process.Runner.
type Interface struct {
	runner   process.Runner
	lookPath func(string) (string, error)
	logger   zerolog.Logger

	mu        sync.Mutex
	available *bool
	version   string
}

// New returns an Interface. lookPath resolves the ros2 binary.
func New(runner process.Runner, lookPath func(string) (string, error)) *Interface {
	return &Interface{
		runner:   runner,
		lookPath: lookPath,
		logger:   logging.Component("ros2"),
	}
}

// IsAvailable reports whether ros2 is on the execution path. The answer is cached.
func (i *Interface) IsAvailable() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.available == nil {
		_, err := i.lookPath(tool)
		ok := err == nil
		if !ok {
			i.logger.Warn().Msg("ros2 CLI not found in PATH")
		}
		i.available = &ok
	}

	return *i.available
}

// Invalidate clears the cached availability and version.
func (i *Interface) Invalidate() {
	i.mu.Lock()
	i.available = nil
	i.version = ""
	i.mu.Unlock()
}

// Version returns the output of "ros2 --version", or "" when unavailable.
func (i *Interface) Version() string {
	if !i.IsAvailable() {
		return ""
	}

	i.mu.Lock()
	cached := i.version
	i.mu.Unlock()
	if cached != "" {
		return cached
	}

	res := i.runner.Run([]string{tool, "--version"}, process.Options{Capture: true})
	if !res.Success() {
		i.logger.Debug().Str("stderr", res.Stderr).Msg("failed to read ros2 version")
		return ""
	}

	v := strings.TrimSpace(res.Stdout)
	i.mu.Lock()
	i.version = v
	i.mu.Unlock()

	return v
}

// Run executes "ros2 args..." with the terminal attached and returns the
// exit code. A missing ros2 yields 127 without starting a process.
func (i *Interface) Run(args []string) int {
	if !i.IsAvailable() {
		return errorcodes.ExitToolNotFound
	}

	return i.runner.Run(append([]string{tool}, args...), process.Options{}).ExitCode
}

// Packages lists the installed packages.
func (i *Interface) Packages() []string { return i.list("pkg", "list") }

// Nodes lists the running nodes.
func (i *Interface) Nodes() []string { return i.list("node", "list") }

// Topics lists the active topics.
func (i *Interface) Topics() []string { return i.list("topic", "list") }

// DependenciesSatisfied reports whether "ros2 pkg dependencies" succeeds for pkg.
func (i *Interface) DependenciesSatisfied(pkg string) bool {
	if !i.IsAvailable() {
		return false
	}

	return i.runner.Run([]string{tool, "pkg", "dependencies", pkg}, process.Options{Capture: true}).Success()
}

func (i *Interface) list(args ...string) []string {
	if !i.IsAvailable() {
		return nil
	}

	res := i.runner.Run(append([]string{tool}, args...), process.Options{Capture: true})
	if !res.Success() {
		return nil
	}

	return Lines(res.Stdout)
}

// Lines splits output into trimmed, non-empty lines.
func Lines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}
