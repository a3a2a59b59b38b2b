// Package simulation manages Gazebo simulation sessions.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andrei-cloud/go_onecode/internal/cli"
	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/andrei-cloud/go_onecode/internal/plugins"
	"github.com/andrei-cloud/go_onecode/internal/process"
	"github.com/andrei-cloud/go_onecode/internal/ros2"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// Identifier is the discovery identifier the plugin factory is registered under.
const Identifier = "sim_plugin"

const (
	// StopGrace bounds the wait for a simulator to exit after SIGTERM.
	StopGrace = 5 * time.Second
	// SpawnDelay is how long a GUI simulator gets to come up before a robot is spawned.
	SpawnDelay = 3 * time.Second
)

var (
	errNoSimulator   = errors.New("no suitable simulator found")
	errRobotRequired = errors.New("robot is required")
)

// simulators in order of preference. Newer Gazebo wins over Ignition and Classic.
var simulators = []struct {
	tool    string
	launch  []string
	version []string
	label   string
}{
	{"gz", []string{"gz", "sim"}, []string{"gz", "--version"}, "Gazebo"},
	{"ign", []string{"ign", "gazebo"}, []string{"ign", "--versions"}, "Ignition"},
	{"gazebo", []string{"gazebo"}, []string{"gazebo", "--version"}, "Gazebo Classic"},
}

var worldExtensions = []string{".world", ".sdf"}

// Plugin starts, stops and populates simulators.
type Plugin struct {
	plugins.Base

	deps   plugins.Deps
	ros2   *ros2.Interface
	probe  *plugins.Probe
	logger zerolog.Logger

	getwd      func() (string, error)
	getenv     func(string) string
	systemDirs func() []string
	spawnDelay time.Duration

	// GUI simulators started by this instance.
	mu      sync.Mutex
	handles []*process.Handle
}

// New is the plugins.Factory for the simulation plugin.
func New(deps plugins.Deps) (plugins.Plugin, error) {
	if deps.Runner == nil || deps.Supervisor == nil {
		return nil, errors.New("simulation plugin needs a process runner and supervisor")
	}

	lookPath := deps.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	p := &Plugin{
		deps:       deps,
		ros2:       ros2.New(deps.Runner, lookPath),
		logger:     deps.Logger.With().Str("plugin", "simulation").Logger(),
		getwd:      os.Getwd,
		getenv:     os.Getenv,
		systemDirs: systemWorldDirs,
		spawnDelay: SpawnDelay,
	}
	p.probe = plugins.NewProbe(func() bool {
		for _, s := range simulators {
			if deps.Which(s.tool) {
				return true
			}
		}
		p.logger.Warn().Msg("no simulation tools found (Gazebo, Ignition)")

		return false
	})

	return p, nil
}

func (p *Plugin) Name() string { return "simulation" }

func (p *Plugin) Description() string {
	return "Simulation environment management (Gazebo, Isaac Sim, etc.)"
}

func (p *Plugin) Commands() []string {
	return []string{"start_simulation", "stop_simulation", "list_worlds", "spawn_robot"}
}

func (p *Plugin) IsAvailable() bool { return p.probe.Available() }

func (p *Plugin) Operations() map[string]plugins.Operation {
	return map[string]plugins.Operation{
		"start_simulation": p.start,
		"stop_simulation":  p.stop,
		"list_worlds":      p.listWorlds,
		"spawn_robot":      p.spawn,
	}
}

// Info lists the version of every installed simulator.
func (p *Plugin) Info() map[string]any {
	if !p.IsAvailable() {
		return nil
	}

	found := []string{}
	for _, s := range simulators {
		if !p.deps.Which(s.tool) {
			continue
		}
		res := p.deps.Runner.Run(s.version, process.Options{Capture: true})
		if res.Success() {
			found = append(found, fmt.Sprintf("%s: %s", s.label, strings.TrimSpace(res.Stdout)))
		}
	}

	return map[string]any{"available_simulators": found}
}

func (p *Plugin) ConfigSchema() map[string]any {
	optString := map[string]any{"type": []string{"string", "null"}, "default": nil}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"default_world":        optString,
			"default_robot":        optString,
			"headless_mode":        map[string]any{"type": "boolean", "default": false},
			"auto_close_on_exit":   map[string]any{"type": "boolean", "default": true},
			"gazebo_model_path":    optString,
			"gazebo_resource_path": optString,
		},
	}
}

// Cleanup stops the simulators this process started when auto_close_on_exit is set.
func (p *Plugin) Cleanup() bool {
	if p.AutoClose() {
		p.stopAll()
	}

	return true
}

// AutoClose reports whether simulators must not outlive the command that started them.
func (p *Plugin) AutoClose() bool {
	return cast.ToBool(p.deps.Setting("simulation.auto_close_on_exit", true))
}

func (p *Plugin) setting(key string) string {
	return cast.ToString(p.deps.Setting("simulation."+key, nil))
}

// Launcher returns the launch vector of the preferred installed simulator.
func (p *Plugin) Launcher() ([]string, bool) {
	for _, s := range simulators {
		if p.deps.Which(s.tool) {
			return append([]string(nil), s.launch...), true
		}
	}

	return nil, false
}

// StartCommand assembles the simulator command line for args. Missing
// world, robot and headless arguments come from the simulation section.
func (p *Plugin) StartCommand(args plugins.Args) ([]string, error) {
	cmd, ok := p.Launcher()
	if !ok {
		return nil, errNoSimulator
	}

	if p.headless(args) {
		if cmd[0] == "gazebo" {
			cmd = append(cmd, "--headless")
		} else {
			cmd = append(cmd, "--headless-rendering", "-s")
		}
	}

	if world := args.String("world", p.setting("default_world")); world != "" {
		if path, ok := p.FindWorld(world); ok {
			p.logger.Info().Str("world", path).Msg("loading world")
			cmd = append(cmd, path)
		} else {
			p.logger.Warn().Str("world", world).Msg("world file not found")
		}
	}

	return append(cmd, args.Strings("extra_args")...), nil
}

func (p *Plugin) headless(args plugins.Args) bool {
	return args.Bool("headless", cast.ToBool(p.deps.Setting("simulation.headless_mode", false)))
}

// env exports the configured Gazebo search paths to the simulator.
func (p *Plugin) env() map[string]string {
	env := map[string]string{}
	if v := p.setting("gazebo_model_path"); v != "" {
		env["GAZEBO_MODEL_PATH"] = v
	}
	if v := p.setting("gazebo_resource_path"); v != "" {
		env["GAZEBO_RESOURCE_PATH"] = v
	}

	return env
}

func (p *Plugin) start(ctx context.Context, args plugins.Args) (int, error) {
	if !p.IsAvailable() {
		return errorcodes.ExitFailure, fmt.Errorf("simulator: %w", errorcodes.ErrToolNotAvailable)
	}

	cmd, err := p.StartCommand(args)
	if err != nil {
		return errorcodes.ExitFailure, err
	}

	headless := p.headless(args)
	p.logger.Info().Strs("command", cmd).Bool("headless", headless).Msg("starting simulation")

	h, err := p.deps.Supervisor.Start(cmd, process.Options{Capture: headless, Env: p.env()})
	if err != nil {
		return errorcodes.ExitFailure, fmt.Errorf("failed to start simulation: %w", err)
	}

	if headless {
		return p.deps.Supervisor.Wait(h).ExitCode, nil
	}

	if robot := args.String("robot", p.setting("default_robot")); robot != "" {
		go p.spawnLater(ctx, h, robot)
	}

	p.mu.Lock()
	p.handles = append(p.handles, h)
	p.mu.Unlock()

	p.logger.Info().Int("pid", h.PID()).Msg("simulation started in GUI mode")

	return errorcodes.ExitSuccess, nil
}

// spawnLater spawns robot once the simulator had time to start, unless the
// simulator exits or ctx is done first.
func (p *Plugin) spawnLater(ctx context.Context, h *process.Handle, robot string) {
	timer := time.NewTimer(p.spawnDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		if _, err := p.spawn(ctx, plugins.Args{"robot": robot}); err != nil {
			p.logger.Error().Err(err).Str("robot", robot).Msg("delayed spawn failed")
		}
	case <-h.Done():
	case <-ctx.Done():
	}
}

func (p *Plugin) stop(context.Context, plugins.Args) (int, error) {
	p.stopAll()

	return errorcodes.ExitSuccess, nil
}

// stopAll stops the simulators this instance started. Processes started by
// other users of the supervisor are left alone.
func (p *Plugin) stopAll() {
	p.mu.Lock()
	handles := p.handles
	p.handles = nil
	p.mu.Unlock()

	n := p.deps.Supervisor.Stop(StopGrace, handles...)
	if n == 0 {
		p.logger.Info().Msg("no running simulation processes")
		return
	}

	p.logger.Info().Int("stopped", n).Msg("all simulation processes stopped")
}

// SpawnCommand returns the ros2 service call arguments that spawn robot at the given pose.
func SpawnCommand(robot string, x, y, z, yaw float64) []string {
	request := fmt.Sprintf(
		`{name: "%s", xml: "", initial_pose: {position: {x: %s, y: %s, z: %s}, orientation: {z: %s}}}`,
		robot, formatFloat(x), formatFloat(y), formatFloat(z), formatFloat(yaw))

	return []string{"service", "call", "/spawn_entity", "gazebo_msgs/SpawnEntity", request}
}

// formatFloat keeps a decimal point on whole numbers so the request parses as floats.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s
}

func (p *Plugin) spawn(_ context.Context, args plugins.Args) (int, error) {
	robot := args.String("robot", "")
	if robot == "" {
		return errorcodes.ExitFailure, errRobotRequired
	}
	if !p.ros2.IsAvailable() {
		return errorcodes.ExitFailure, fmt.Errorf("ros2 is needed to spawn robots: %w", errorcodes.ErrToolNotAvailable)
	}

	x, y, z := args.Float("x", 0), args.Float("y", 0), args.Float("z", 0)
	p.logger.Info().Str("robot", robot).Floats64("position", []float64{x, y, z}).Msg("spawning robot")

	code := p.ros2.Run(SpawnCommand(robot, x, y, z, args.Float("yaw", 0)))
	if code != errorcodes.ExitSuccess {
		p.logger.Error().Str("robot", robot).Int("exit_code", code).Msg("failed to spawn robot")
	} else {
		p.logger.Info().Str("robot", robot).Msg("successfully spawned robot")
	}

	return code, nil
}

func systemWorldDirs() []string {
	dirs := []string{"/usr/share/gazebo/worlds"}
	if matches, err := filepath.Glob("/opt/ros/*/share/*/worlds"); err == nil {
		dirs = append(dirs, matches...)
	}

	return dirs
}

// searchDirs lists the directories searched for world files: the current
// directory, the system world directories, extra and the model path.
func (p *Plugin) searchDirs(extra []string) []string {
	var dirs []string
	if cwd, err := p.getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	dirs = append(dirs, p.systemDirs()...)
	dirs = append(dirs, extra...)

	modelPath := p.setting("gazebo_model_path")
	if modelPath == "" {
		modelPath = p.getenv("GAZEBO_MODEL_PATH")
	}
	for _, dir := range filepath.SplitList(modelPath) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}

	return dirs
}

func isWorldFile(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range worldExtensions {
		if ext == e {
			return true
		}
	}

	return false
}

// walkWorlds calls fn for every world file below the search directories
// until fn returns false.
func (p *Plugin) walkWorlds(extra []string, fn func(path string) bool) {
	for _, dir := range p.searchDirs(extra) {
		stop := false
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && isWorldFile(d.Name()) && !fn(path) {
				stop = true
				return fs.SkipAll
			}

			return nil
		})
		if stop {
			return
		}
	}
}

// FindWorld resolves name to a world file. An existing path is returned as
// is; otherwise the first world file whose name starts with name wins.
func (p *Plugin) FindWorld(name string) (string, bool) {
	if _, err := os.Stat(name); err == nil {
		return name, true
	}

	var found string
	p.walkWorlds(nil, func(path string) bool {
		if strings.HasPrefix(filepath.Base(path), name) {
			found = path
			return false
		}

		return true
	})

	return found, found != ""
}

// Worlds returns every world file below the search directories, sorted.
func (p *Plugin) Worlds(extra []string) []string {
	seen := map[string]bool{}
	var worlds []string
	p.walkWorlds(extra, func(path string) bool {
		if !seen[path] {
			seen[path] = true
			worlds = append(worlds, path)
		}

		return true
	})
	sort.Strings(worlds)

	return worlds
}

func (p *Plugin) listWorlds(_ context.Context, args plugins.Args) (int, error) {
	worlds := p.Worlds(args.Strings("search_paths"))
	out := p.deps.Stdout()

	if len(worlds) == 0 {
		fmt.Fprintln(out, "No world files found")
		return errorcodes.ExitSuccess, nil
	}

	fmt.Fprintln(out, "Available world files:")
	fmt.Fprintln(out, cli.Rule(40))
	for _, w := range worlds {
		fmt.Fprintf(out, "  %-30s %s\n", filepath.Base(w), filepath.Dir(w))
	}

	return errorcodes.ExitSuccess, nil
}
