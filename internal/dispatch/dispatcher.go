// Package dispatch routes a command invocation to a loaded plugin operation.
package dispatch

import (
	"context"
	"fmt"
	"slices"

	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/andrei-cloud/go_onecode/internal/logging"
	"github.com/andrei-cloud/go_onecode/internal/plugins"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Lookup resolves plugins by name.
type Lookup interface {
	Get(name string) (plugins.Plugin, bool)
}

// Dispatcher holds no state besides its collaborators.
type Dispatcher struct {
	plugins Lookup
	logger  zerolog.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger replaces the dispatcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// New returns a Dispatcher resolving plugins through lookup.
func New(lookup Lookup, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		plugins: lookup,
		logger:  logging.Component("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Execute runs command on the named plugin and returns its exit code. Every
// failure, including a panicking operation, is logged and reported as 1.
func (d *Dispatcher) Execute(ctx context.Context, plugin, command string, args plugins.Args) int {
	code, err := d.Run(ctx, plugin, command, args)
	if err != nil {
		return errorcodes.ExitFailure
	}

	return code
}

// Run is Execute with the failure cause returned alongside the exit code.
// The error wraps ErrPluginNotFound, ErrPluginUnavailable, ErrCommandNotFound
// or ErrToolFailure.
func (d *Dispatcher) Run(ctx context.Context, plugin, command string, args plugins.Args) (code int, err error) {
	runID := uuid.NewString()
	logger := d.logger.With().
		Str("run_id", runID).
		Str("plugin", plugin).
		Str("command", command).
		Logger()

	p, ok := d.plugins.Get(plugin)
	if !ok {
		logger.Error().Msg("plugin not found")
		return errorcodes.ExitFailure, fmt.Errorf("%s: %w", plugin, errorcodes.ErrPluginNotFound)
	}

	if !p.IsAvailable() {
		logger.Error().Msg("plugin is not available")
		return errorcodes.ExitFailure, fmt.Errorf("%s: %w", plugin, errorcodes.ErrPluginUnavailable)
	}

	op, ok := p.Operations()[command]
	if !ok || op == nil || !slices.Contains(p.Commands(), command) {
		logger.Error().Msg("command not found on plugin")
		return errorcodes.ExitFailure, fmt.Errorf("%s %s: %w", plugin, command, errorcodes.ErrCommandNotFound)
	}

	if args == nil {
		args = plugins.Args{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("command panicked")
			code = errorcodes.ExitFailure
			err = fmt.Errorf("%s %s: panic: %v: %w", plugin, command, rec, errorcodes.ErrToolFailure)
		}
	}()

	logger.Debug().Interface("args", map[string]any(args)).Msg("executing command")

	code, err = op(ctx, args)
	if err != nil {
		logger.Error().Err(err).Msg("command failed")
		return errorcodes.ExitFailure, fmt.Errorf("%s %s: %v: %w", plugin, command, err, errorcodes.ErrToolFailure)
	}

	logger.Debug().Int("exit_code", code).Msg("command finished")

	return code, nil
}
