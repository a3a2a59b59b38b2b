// Package app wires the configuration, process runners, plugin registry and
// dispatcher into the single context every CLI command works with.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/andrei-cloud/go_onecode/internal/config"
	"github.com/andrei-cloud/go_onecode/internal/dispatch"
	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/andrei-cloud/go_onecode/internal/logging"
	"github.com/andrei-cloud/go_onecode/internal/plugins"
	"github.com/andrei-cloud/go_onecode/internal/plugins/colcon"
	"github.com/andrei-cloud/go_onecode/internal/plugins/simulation"
	"github.com/andrei-cloud/go_onecode/internal/process"
	"github.com/andrei-cloud/go_onecode/internal/ros2"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// Options controls how an App is assembled.
type Options struct {
	// ConfigPath is an explicit configuration document; empty for none.
	ConfigPath string
	// LogLevel overrides logging.level when not empty. Without it the
	// console stays at WARNING unless logging.level was changed from its default.
	LogLevel string
	// LogFormat is "human" (default) or "json".
	LogFormat string
	// LogOut receives log output; os.Stderr when nil.
	LogOut io.Writer
	// Out receives user-facing output; os.Stdout when nil.
	Out io.Writer
	// PluginPaths replace the default plugin search paths when not nil.
	PluginPaths []string
	// ConfigOptions are passed to config.Resolve.
	ConfigOptions []config.Option
	// SkipLogging leaves the global logger untouched.
	SkipLogging bool
}

// App is created once per process and shared by all commands.
type App struct {
	Config     *config.Store
	Registry   *plugins.Registry
	Runner     *process.ExecRunner
	Supervisor *process.Supervisor
	Dispatcher *dispatch.Dispatcher
	ROS2       *ros2.Interface
	Out        io.Writer

	logger zerolog.Logger
}

// RegisterBuiltins registers the factories of the plugins compiled into the binary.
func RegisterBuiltins(r *plugins.Registry) {
	r.RegisterFactory(colcon.Identifier, colcon.New)
	r.RegisterFactory(simulation.Identifier, simulation.New)
}

// New resolves the configuration, initializes logging from it and loads every
// discoverable plugin plus the builtins discovery did not reach. Only a failure to read an explicit configuration
// document or to open the log file is returned.
func New(opts Options) (*App, error) {
	store, err := config.Resolve(opts.ConfigPath, opts.ConfigOptions...)
	if err != nil {
		return nil, err
	}

	if !opts.SkipLogging {
		if err := InitLogging(store, opts); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	runner := process.NewRunner()
	runner.Stdout = out
	supervisor := process.NewSupervisor()
	supervisor.Stdout = out

	deps := plugins.Deps{
		Settings:   store,
		Runner:     runner,
		Supervisor: supervisor,
		LookPath:   exec.LookPath,
		Out:        out,
		Logger:     logging.Component("plugin"),
	}

	var regOpts []plugins.RegistryOption
	if opts.PluginPaths != nil {
		regOpts = append(regOpts, plugins.WithSearchPaths(opts.PluginPaths...))
	}
	registry := plugins.NewRegistry(deps, regOpts...)
	RegisterBuiltins(registry)
	registry.LoadAll()
	registry.LoadFactories()

	return &App{
		Config:     store,
		Registry:   registry,
		Runner:     runner,
		Supervisor: supervisor,
		Dispatcher: dispatch.New(registry),
		ROS2:       ros2.New(runner, exec.LookPath),
		Out:        out,
		logger:     logging.Component("app"),
	}, nil
}

// InitLogging configures the global logger from the logging section of store.
func InitLogging(store *config.Store, opts Options) error {
	cfg := store.Snapshot().Logging

	level := opts.LogLevel
	if level == "" {
		level = "WARNING"
		if cfg.Level != config.Defaults().Logging.Level {
			level = cfg.Level
		}
	}

	var file string
	if cfg.File != nil {
		file = *cfg.File
	}

	return logging.InitLogger(logging.Options{
		Level:       level,
		Human:       opts.LogFormat != "json",
		File:        file,
		MaxFileSize: cfg.MaxFileSize,
		BackupCount: cfg.BackupCount,
		Out:         opts.LogOut,
	})
}

// Execute runs command on plugin and returns its exit code.
func (a *App) Execute(ctx context.Context, plugin, command string, args plugins.Args) int {
	return a.Dispatcher.Execute(ctx, plugin, command, args)
}

// Run is Execute with the exit code converted to an error for command handlers.
func (a *App) Run(ctx context.Context, plugin, command string, args plugins.Args) error {
	return errorcodes.Exit(a.Execute(ctx, plugin, command, args))
}

// Close releases every plugin and stops the background processes still owned
// by the supervisor.
func (a *App) Close() {
	a.Registry.Close()
	if n := a.Supervisor.Len(); n > 0 && a.AutoClose() {
		a.logger.Info().Int("processes", n).Msg("stopping background processes")
		a.Supervisor.StopAll(process.DefaultStopGrace)
	}
}

// AutoClose reports whether background simulators are stopped when onecode exits.
func (a *App) AutoClose() bool {
	return cast.ToBool(a.Config.Get("simulation.auto_close_on_exit", true))
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying a.
func NewContext(ctx context.Context, a *App) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the App stored in ctx, or nil.
func FromContext(ctx context.Context) *App {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(contextKey{}).(*App)

	return a
}
