package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ReadDocument decodes the configuration document at path. The format is
// chosen by extension: .toml and .json are recognized, anything else is YAML.
// An empty document yields a nil map.
func ReadDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc map[string]any

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	case ".json":
		if len(strings.TrimSpace(string(data))) == 0 {
			return nil, nil
		}
		err = json.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return doc, nil
}

// writeDocument encodes t as YAML, creating parent directories as needed.
func writeDocument(path string, t Tree) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// merge overlays doc onto t. Only recognized keys of the build, simulation
// and logging sections are applied; each entry of plugins replaces the
// previous document for that plugin. Values that cannot be coerced are
// logged and skipped.
func merge(t *Tree, doc map[string]any, logger zerolog.Logger) {
	for section, fields := range sections {
		raw, ok := doc[section]
		if !ok || raw == nil {
			continue
		}

		values, ok := raw.(map[string]any)
		if !ok {
			logger.Warn().Str("section", section).Msg("ignoring non-mapping configuration section")
			continue
		}

		for key, value := range values {
			f, known := fields[key]
			if !known {
				continue
			}
			if err := f.set(t, value); err != nil {
				logger.Warn().
					Err(err).
					Str("key", section+"."+key).
					Interface("value", value).
					Msg("ignoring invalid configuration value")
			}
		}
	}

	raw, ok := doc["plugins"]
	if !ok || raw == nil {
		return
	}

	plugins, ok := raw.(map[string]any)
	if !ok {
		logger.Warn().Msg("ignoring non-mapping plugins section")
		return
	}

	if t.Plugins == nil {
		t.Plugins = make(map[string]any, len(plugins))
	}
	for name, value := range plugins {
		t.Plugins[name] = cloneValue(value)
	}
}
