// Package config resolves the layered onecode configuration.
package config

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Tree holds all configuration settings.
type Tree struct {
	Build      BuildConfig      `yaml:"build" json:"build" toml:"build"`
	Simulation SimulationConfig `yaml:"simulation" json:"simulation" toml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging" toml:"logging"`
	// Plugins maps a plugin name to its free-form document.
	Plugins map[string]any `yaml:"plugins" json:"plugins" toml:"plugins"`
}

// BuildConfig configures workspace builds.
type BuildConfig struct {
	CMakeBuildType  string  `yaml:"cmake_build_type" json:"cmake_build_type" toml:"cmake_build_type"`
	SymlinkInstall  bool    `yaml:"symlink_install" json:"symlink_install" toml:"symlink_install"`
	ParallelJobs    *int    `yaml:"parallel_jobs" json:"parallel_jobs" toml:"parallel_jobs"`
	ContinueOnError bool    `yaml:"continue_on_error" json:"continue_on_error" toml:"continue_on_error"`
	CMakeArgs       *string `yaml:"cmake_args" json:"cmake_args" toml:"cmake_args"`
	AmentCMakeArgs  *string `yaml:"ament_cmake_args" json:"ament_cmake_args" toml:"ament_cmake_args"`
}

// SimulationConfig configures simulator runs.
type SimulationConfig struct {
	DefaultWorld       *string `yaml:"default_world" json:"default_world" toml:"default_world"`
	DefaultRobot       *string `yaml:"default_robot" json:"default_robot" toml:"default_robot"`
	HeadlessMode       bool    `yaml:"headless_mode" json:"headless_mode" toml:"headless_mode"`
	AutoCloseOnExit    bool    `yaml:"auto_close_on_exit" json:"auto_close_on_exit" toml:"auto_close_on_exit"`
	GazeboModelPath    *string `yaml:"gazebo_model_path" json:"gazebo_model_path" toml:"gazebo_model_path"`
	GazeboResourcePath *string `yaml:"gazebo_resource_path" json:"gazebo_resource_path" toml:"gazebo_resource_path"`
}

// LoggingConfig configures the log output.
type LoggingConfig struct {
	Level       string  `yaml:"level" json:"level" toml:"level"`
	File        *string `yaml:"file" json:"file" toml:"file"`
	MaxFileSize string  `yaml:"max_file_size" json:"max_file_size" toml:"max_file_size"`
	BackupCount int     `yaml:"backup_count" json:"backup_count" toml:"backup_count"`
}

// Defaults returns the compiled-in configuration.
func Defaults() Tree {
	return Tree{
		Build: BuildConfig{
			CMakeBuildType: "Release",
			SymlinkInstall: true,
		},
		Simulation: SimulationConfig{
			AutoCloseOnExit: true,
		},
		Logging: LoggingConfig{
			Level:       "INFO",
			MaxFileSize: "10MB",
			BackupCount: 5,
		},
		Plugins: map[string]any{},
	}
}

// Clone returns a copy of t that shares no mutable state with it.
func (t Tree) Clone() Tree {
	out := t
	out.Build.ParallelJobs = clonePtr(t.Build.ParallelJobs)
	out.Build.CMakeArgs = clonePtr(t.Build.CMakeArgs)
	out.Build.AmentCMakeArgs = clonePtr(t.Build.AmentCMakeArgs)
	out.Simulation.DefaultWorld = clonePtr(t.Simulation.DefaultWorld)
	out.Simulation.DefaultRobot = clonePtr(t.Simulation.DefaultRobot)
	out.Simulation.GazeboModelPath = clonePtr(t.Simulation.GazeboModelPath)
	out.Simulation.GazeboResourcePath = clonePtr(t.Simulation.GazeboResourcePath)
	out.Logging.File = clonePtr(t.Logging.File)

	out.Plugins = make(map[string]any, len(t.Plugins))
	for name, doc := range t.Plugins {
		out.Plugins[name] = cloneValue(doc)
	}

	return out
}

// field binds one recognized leaf key to its slot in the tree.
type field struct {
	get func(t *Tree) any
	set func(t *Tree, v any) error
}

// sections lists every recognized key below build, simulation and logging.
var sections = map[string]map[string]field{
	"build": {
		"cmake_build_type":  stringField(func(t *Tree) *string { return &t.Build.CMakeBuildType }),
		"symlink_install":   boolField(func(t *Tree) *bool { return &t.Build.SymlinkInstall }),
		"parallel_jobs":     optIntField(func(t *Tree) **int { return &t.Build.ParallelJobs }),
		"continue_on_error": boolField(func(t *Tree) *bool { return &t.Build.ContinueOnError }),
		"cmake_args":        optStringField(func(t *Tree) **string { return &t.Build.CMakeArgs }),
		"ament_cmake_args":  optStringField(func(t *Tree) **string { return &t.Build.AmentCMakeArgs }),
	},
	"simulation": {
		"default_world":        optStringField(func(t *Tree) **string { return &t.Simulation.DefaultWorld }),
		"default_robot":        optStringField(func(t *Tree) **string { return &t.Simulation.DefaultRobot }),
		"headless_mode":        boolField(func(t *Tree) *bool { return &t.Simulation.HeadlessMode }),
		"auto_close_on_exit":   boolField(func(t *Tree) *bool { return &t.Simulation.AutoCloseOnExit }),
		"gazebo_model_path":    optStringField(func(t *Tree) **string { return &t.Simulation.GazeboModelPath }),
		"gazebo_resource_path": optStringField(func(t *Tree) **string { return &t.Simulation.GazeboResourcePath }),
	},
	"logging": {
		"level":         stringField(func(t *Tree) *string { return &t.Logging.Level }),
		"file":          optStringField(func(t *Tree) **string { return &t.Logging.File }),
		"max_file_size": stringField(func(t *Tree) *string { return &t.Logging.MaxFileSize }),
		"backup_count":  intField(func(t *Tree) *int { return &t.Logging.BackupCount }),
	},
}

func stringField(slot func(*Tree) *string) field {
	return field{
		get: func(t *Tree) any { return *slot(t) },
		set: func(t *Tree, v any) error {
			if v == nil {
				return errNilValue
			}
			s, err := cast.ToStringE(v)
			if err != nil {
				return err
			}
			*slot(t) = s

			return nil
		},
	}
}

func boolField(slot func(*Tree) *bool) field {
	return field{
		get: func(t *Tree) any { return *slot(t) },
		set: func(t *Tree, v any) error {
			if v == nil {
				return errNilValue
			}
			b, err := cast.ToBoolE(v)
			if err != nil {
				return err
			}
			*slot(t) = b

			return nil
		},
	}
}

func intField(slot func(*Tree) *int) field {
	return field{
		get: func(t *Tree) any { return *slot(t) },
		set: func(t *Tree, v any) error {
			if v == nil {
				return errNilValue
			}
			n, err := toInt(v)
			if err != nil {
				return err
			}
			*slot(t) = n

			return nil
		},
	}
}

// toInt parses strings as base 10 and leaves other values to cast.
func toInt(v any) (int, error) {
	if s, ok := v.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}

	return cast.ToIntE(v)
}

func optIntField(slot func(*Tree) **int) field {
	return field{
		get: func(t *Tree) any {
			if p := *slot(t); p != nil {
				return *p
			}

			return nil
		},
		set: func(t *Tree, v any) error {
			if v == nil {
				*slot(t) = nil
				return nil
			}
			n, err := toInt(v)
			if err != nil {
				return err
			}
			*slot(t) = &n

			return nil
		},
	}
}

func optStringField(slot func(*Tree) **string) field {
	return field{
		get: func(t *Tree) any {
			if p := *slot(t); p != nil {
				return *p
			}

			return nil
		},
		set: func(t *Tree, v any) error {
			if v == nil {
				*slot(t) = nil
				return nil
			}
			s, err := cast.ToStringE(v)
			if err != nil {
				return err
			}
			*slot(t) = &s

			return nil
		},
	}
}

var errNilValue = errors.New("value must not be null")

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p

	return &v
}

// cloneValue copies the map and slice containers decoded documents are built from.
func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = cloneValue(e)
		}

		return out
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e)
		}

		return out
	default:
		return v
	}
}
