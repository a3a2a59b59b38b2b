// Package colcon integrates the colcon build tool for ROS 2 workspaces.
package colcon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andrei-cloud/go_onecode/internal/cli"
	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/andrei-cloud/go_onecode/internal/plugins"
	"github.com/andrei-cloud/go_onecode/internal/process"
	"github.com/andrei-cloud/go_onecode/internal/ros2"
	"github.com/andrei-cloud/go_onecode/internal/workspace"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// Identifier is the discovery identifier the plugin factory is registered under.
const Identifier = "colcon_plugin"

const tool = "colcon"

var errNoWorkspace = errors.New("no ROS2 workspace found")

// Plugin builds, tests and cleans colcon workspaces.
type Plugin struct {
	plugins.Base

	deps   plugins.Deps
	probe  *plugins.Probe
	logger zerolog.Logger
	getwd  func() (string, error)
}

// New is the plugins.Factory for the colcon plugin.
func New(deps plugins.Deps) (plugins.Plugin, error) {
	if deps.Runner == nil {
		return nil, errors.New("colcon plugin needs a process runner")
	}

	p := &Plugin{
		deps:   deps,
		logger: deps.Logger.With().Str("plugin", "colcon").Logger(),
		getwd:  os.Getwd,
	}
	p.probe = plugins.NewProbe(func() bool {
		ok := deps.Which(tool)
		if !ok {
			p.logger.Warn().Msg("colcon not found in PATH")
		}

		return ok
	})

	return p, nil
}

func (p *Plugin) Name() string { return "colcon" }

func (p *Plugin) Description() string {
	return "Colcon build system integration for ROS2 packages"
}

func (p *Plugin) Commands() []string {
	return []string{"build_workspace", "clean_workspace", "test_workspace", "list_packages"}
}

func (p *Plugin) IsAvailable() bool { return p.probe.Available() }

func (p *Plugin) Operations() map[string]plugins.Operation {
	return map[string]plugins.Operation{
		"build_workspace": p.build,
		"clean_workspace": p.clean,
		"test_workspace":  p.test,
		"list_packages":   p.list,
	}
}

// Info adds the colcon version and the current workspace to the listing.
func (p *Plugin) Info() map[string]any {
	info := map[string]any{}

	if p.IsAvailable() {
		res := p.deps.Runner.Run([]string{tool, "--version"}, process.Options{Capture: true})
		if res.Success() {
			info["colcon_version"] = strings.TrimSpace(res.Stdout)
		}
	}

	if ws, err := p.workspace(nil); err == nil {
		info["workspace_path"] = ws
		info["workspace_packages"] = workspace.CountPackages(ws)
	}

	return info
}

func (p *Plugin) Help(command string) string {
	switch command {
	case "build_workspace":
		return "build_workspace: colcon build with debug, packages, parallel_jobs, symlink_install, continue_on_error, cmake_args and ament_cmake_args"
	case "clean_workspace":
		return "clean_workspace: remove build (default), install and log directories"
	case "test_workspace":
		return "test_workspace: colcon test followed by a verbose test-result summary"
	case "list_packages":
		return "list_packages: packages in topological order"
	}

	return ""
}

func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cmake_build_type": map[string]any{
				"type":    "string",
				"enum":    []string{"Debug", "Release", "RelWithDebInfo", "MinSizeRel"},
				"default": "Release",
			},
			"symlink_install":   map[string]any{"type": "boolean", "default": true},
			"parallel_jobs":     map[string]any{"type": []string{"integer", "null"}, "minimum": 1, "default": nil},
			"continue_on_error": map[string]any{"type": "boolean", "default": false},
			"cmake_args":        map[string]any{"type": []string{"string", "null"}, "default": nil},
			"ament_cmake_args":  map[string]any{"type": []string{"string", "null"}, "default": nil},
		},
	}
}

// workspace returns the "workspace" argument or the workspace enclosing the
// current directory.
func (p *Plugin) workspace(args plugins.Args) (string, error) {
	if dir := args.String("workspace", ""); dir != "" {
		return filepath.Abs(dir)
	}

	cwd, err := p.getwd()
	if err != nil {
		return "", err
	}
	ws, ok := workspace.FindROS2Workspace(cwd)
	if !ok {
		return "", errNoWorkspace
	}

	return ws, nil
}

// prepare checks availability and resolves the workspace. A non-nil error
// means the operation should stop with exit code 1.
func (p *Plugin) prepare(args plugins.Args) (string, error) {
	if !p.IsAvailable() {
		return "", fmt.Errorf("colcon: %w", errorcodes.ErrToolNotAvailable)
	}

	return p.workspace(args)
}

func (p *Plugin) settingString(key string) string {
	return cast.ToString(p.deps.Setting("build."+key, ""))
}

func (p *Plugin) settingBool(key string, def bool) bool {
	b, err := cast.ToBoolE(p.deps.Setting("build."+key, def))
	if err != nil {
		return def
	}

	return b
}

func (p *Plugin) settingInt(key string) int {
	return cast.ToInt(p.deps.Setting("build."+key, 0))
}

// BuildCommand assembles the colcon build vector. Arguments absent from args
// fall back to the build configuration section.
func (p *Plugin) BuildCommand(args plugins.Args) []string {
	cmd := []string{tool, "build"}

	if args.Bool("symlink_install", p.settingBool("symlink_install", true)) {
		cmd = append(cmd, "--symlink-install")
	}

	buildType := args.String("build_type", p.settingString("cmake_build_type"))
	if args.Bool("debug", false) {
		buildType = "Debug"
	}
	if buildType == "" {
		buildType = "Release"
	}
	cmd = append(cmd, "--cmake-args", "-DCMAKE_BUILD_TYPE="+buildType)

	if extra := strings.Fields(args.String("cmake_args", p.settingString("cmake_args"))); len(extra) > 0 {
		cmd = append(cmd, "--cmake-args")
		cmd = append(cmd, extra...)
	}
	if extra := strings.Fields(args.String("ament_cmake_args", p.settingString("ament_cmake_args"))); len(extra) > 0 {
		cmd = append(cmd, "--ament-cmake-args")
		cmd = append(cmd, extra...)
	}

	if jobs := args.Int("parallel_jobs", p.settingInt("parallel_jobs")); jobs > 0 {
		cmd = append(cmd, "--parallel-workers", fmt.Sprint(jobs))
	}
	if args.Bool("continue_on_error", p.settingBool("continue_on_error", false)) {
		cmd = append(cmd, "--continue-on-error")
	}
	if pkgs := args.Strings("packages"); len(pkgs) > 0 {
		cmd = append(cmd, "--packages-select")
		cmd = append(cmd, pkgs...)
	}

	return append(cmd, "--event-handlers", "console_direct+")
}

func (p *Plugin) build(_ context.Context, args plugins.Args) (int, error) {
	ws, err := p.prepare(args)
	if err != nil {
		return errorcodes.ExitFailure, err
	}

	cmd := p.BuildCommand(args)
	p.logger.Info().Str("workspace", ws).Strs("command", cmd).Msg("building workspace")

	start := time.Now()
	res := p.deps.Runner.Run(cmd, process.Options{Dir: ws})
	elapsed := cli.FormatDuration(time.Since(start))

	if res.Success() {
		p.logger.Info().Str("duration", elapsed).Msg("build completed successfully")
	} else {
		p.logger.Error().Str("duration", elapsed).Int("exit_code", res.ExitCode).Msg("build failed")
	}

	return res.ExitCode, nil
}

func (p *Plugin) clean(_ context.Context, args plugins.Args) (int, error) {
	ws, err := p.workspace(args)
	if err != nil {
		return errorcodes.ExitFailure, err
	}

	p.logger.Info().Str("workspace", ws).Msg("cleaning workspace")

	targets := []struct {
		dir string
		on  bool
	}{
		{"build", args.Bool("build", true)},
		{"install", args.Bool("install", false)},
		{"log", args.Bool("log", false)},
	}

	var cleaned []string
	for _, t := range targets {
		if !t.on {
			continue
		}
		path := filepath.Join(ws, t.dir)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return errorcodes.ExitFailure, fmt.Errorf("remove %s: %w", path, err)
		}
		cleaned = append(cleaned, t.dir)
	}

	if len(cleaned) == 0 {
		p.logger.Info().Msg("no directories to clean")
	} else {
		p.logger.Info().Strs("directories", cleaned).Msg("cleaned directories")
	}

	return errorcodes.ExitSuccess, nil
}

func (p *Plugin) test(_ context.Context, args plugins.Args) (int, error) {
	ws, err := p.prepare(args)
	if err != nil {
		return errorcodes.ExitFailure, err
	}

	cmd := []string{tool, "test"}
	if jobs := args.Int("parallel_jobs", p.settingInt("parallel_jobs")); jobs > 0 {
		cmd = append(cmd, "--parallel-workers", fmt.Sprint(jobs))
	}
	if pkgs := args.Strings("packages"); len(pkgs) > 0 {
		cmd = append(cmd, "--packages-select")
		cmd = append(cmd, pkgs...)
	}

	p.logger.Info().Str("workspace", ws).Msg("running tests")

	start := time.Now()
	res := p.deps.Runner.Run(cmd, process.Options{Dir: ws})
	elapsed := cli.FormatDuration(time.Since(start))

	if !res.Success() {
		p.logger.Error().Str("duration", elapsed).Int("exit_code", res.ExitCode).Msg("tests failed")
		return res.ExitCode, nil
	}

	p.deps.Runner.Run([]string{tool, "test-result", "--verbose"}, process.Options{Dir: ws})
	p.logger.Info().Str("duration", elapsed).Msg("tests completed successfully")

	return res.ExitCode, nil
}

func (p *Plugin) list(_ context.Context, args plugins.Args) (int, error) {
	ws, err := p.prepare(args)
	if err != nil {
		return errorcodes.ExitFailure, err
	}

	res := p.deps.Runner.Run([]string{tool, "list", "--topological-order"}, process.Options{Dir: ws, Capture: true})
	if !res.Success() {
		p.logger.Error().Str("stderr", res.Stderr).Msg("failed to list packages")
		return res.ExitCode, nil
	}

	printPackages(p.deps.Stdout(), ros2.Lines(res.Stdout))

	return res.ExitCode, nil
}

func printPackages(w io.Writer, lines []string) {
	fmt.Fprintln(w, "Packages in workspace:")
	fmt.Fprintln(w, cli.Rule(40))
	for _, line := range lines {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
