package config

import (
	"github.com/spf13/viper"
)

// Environment variables recognized as overrides.
const (
	EnvBuildType    = "ONECODE_BUILD_TYPE"
	EnvParallelJobs = "ONECODE_PARALLEL_JOBS"
	EnvLogLevel     = "ONECODE_LOG_LEVEL"
	EnvLogFile      = "ONECODE_LOG_FILE"
)

type envOverride struct {
	key    string
	env    string
	coerce func(string) (any, error)
}

var envOverrides = []envOverride{
	{key: "build.cmake_build_type", env: EnvBuildType, coerce: asString},
	{key: "build.parallel_jobs", env: EnvParallelJobs, coerce: asInt},
	{key: "logging.level", env: EnvLogLevel, coerce: asString},
	{key: "logging.file", env: EnvLogFile, coerce: asString},
}

func asString(s string) (any, error) { return s, nil }

func asInt(s string) (any, error) { return toInt(s) }

// envBinding reads override variables through a dedicated viper instance.
type envBinding struct {
	v *viper.Viper
}

func newEnvBinding() *envBinding {
	v := viper.New()
	for _, o := range envOverrides {
		// BindEnv only fails when called without a key.
		_ = v.BindEnv(o.key, o.env)
	}

	return &envBinding{v: v}
}

// EnvironmentOverrides returns the overrides currently present in the
// environment, keyed by configuration key. Values that fail coercion are
// logged and left out.
func (s *Store) EnvironmentOverrides() map[string]any {
	out := make(map[string]any)

	for _, o := range envOverrides {
		if !s.env.v.IsSet(o.key) {
			continue
		}

		raw := s.env.v.GetString(o.key)
		if raw == "" {
			continue
		}

		value, err := o.coerce(raw)
		if err != nil {
			s.logger.Warn().Err(err).Str("env", o.env).Str("value", raw).Msg("invalid environment override")
			continue
		}
		out[o.key] = value
	}

	return out
}

// ApplyEnvironmentOverrides sets every valid override on the tree.
func (s *Store) ApplyEnvironmentOverrides() {
	for key, value := range s.EnvironmentOverrides() {
		if err := s.Set(key, value); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to apply environment override")
			continue
		}
		s.logger.Debug().Str("key", key).Interface("value", value).Msg("applied environment override")
	}
}
