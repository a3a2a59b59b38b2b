package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/andrei-cloud/go_onecode/internal/process"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Manifest describes a plugin backed by external commands.
//
//	name: lint
//	description: Run ament linters
//	requires: [ament_flake8]
//	commands:
//	  - name: flake8
//	    run: [ament_flake8, "{path}"]
//	    timeout: 5m
type Manifest struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Version     string            `yaml:"version"`
	Requires    []string          `yaml:"requires"`
	Commands    []ManifestCommand `yaml:"commands"`
}

// ManifestCommand maps one command name to a command vector. Elements may
// contain {key} placeholders filled from the invocation arguments.
type ManifestCommand struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Run         []string `yaml:"run"`
	Timeout     string   `yaml:"timeout"`
}

// ReadManifest parses the manifest at path.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest

	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	return m, m.validate()
}

func (m Manifest) validate() error {
	seen := make(map[string]bool, len(m.Commands))
	for _, c := range m.Commands {
		if strings.TrimSpace(c.Name) == "" {
			return errors.New("command without a name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate command %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Run) == 0 {
			return fmt.Errorf("command %q has an empty run vector", c.Name)
		}
		if c.Timeout != "" {
			if _, err := time.ParseDuration(c.Timeout); err != nil {
				return fmt.Errorf("command %q: invalid timeout: %w", c.Name, err)
			}
		}
	}

	return nil
}

// manifestPlugin runs the commands declared in a Manifest through the shared runner.
type manifestPlugin struct {
	Base

	manifest Manifest
	deps     Deps
	probe    *Probe
}

func newManifestPlugin(m Manifest, deps Deps) *manifestPlugin {
	p := &manifestPlugin{manifest: m, deps: deps}
	p.probe = NewProbe(func() bool {
		for _, tool := range m.Requires {
			if !deps.Which(tool) {
				return false
			}
		}

		return true
	})

	return p
}

func (p *manifestPlugin) Name() string { return p.manifest.Name }

func (p *manifestPlugin) Description() string {
	if p.manifest.Description == "" {
		return p.Base.Description()
	}

	return p.manifest.Description
}

func (p *manifestPlugin) Version() string {
	if p.manifest.Version == "" {
		return p.Base.Version()
	}

	return p.manifest.Version
}

func (p *manifestPlugin) Commands() []string {
	names := make([]string, 0, len(p.manifest.Commands))
	for _, c := range p.manifest.Commands {
		names = append(names, c.Name)
	}

	return names
}

func (p *manifestPlugin) IsAvailable() bool { return p.probe.Available() }

func (p *manifestPlugin) Info() map[string]any {
	return map[string]any{"requires": append([]string(nil), p.manifest.Requires...)}
}

func (p *manifestPlugin) Help(command string) string {
	for _, c := range p.manifest.Commands {
		if c.Name == command && c.Description != "" {
			return fmt.Sprintf("%s: %s", c.Name, c.Description)
		}
	}

	return ""
}

func (p *manifestPlugin) Operations() map[string]Operation {
	ops := make(map[string]Operation, len(p.manifest.Commands))
	for _, c := range p.manifest.Commands {
		ops[c.Name] = p.operation(c)
	}

	return ops
}

func (p *manifestPlugin) operation(c ManifestCommand) Operation {
	return func(_ context.Context, args Args) (int, error) {
		argv, err := expand(c.Run, args)
		if err != nil {
			return 1, fmt.Errorf("%s %s: %w", p.manifest.Name, c.Name, err)
		}

		var timeout time.Duration
		if c.Timeout != "" {
			timeout, _ = time.ParseDuration(c.Timeout)
		}

		res := p.deps.Runner.Run(argv, process.Options{
			Dir:     args.String("cwd", ""),
			Timeout: timeout,
		})

		return res.ExitCode, nil
	}
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expand substitutes {key} placeholders in each element of run. An element
// that is exactly {key} with a list value expands to one element per item;
// a list inside a longer element is an error.
func expand(run []string, args Args) ([]string, error) {
	out := make([]string, 0, len(run))

	var missing, invalid []string
	for _, elem := range run {
		if m := placeholder.FindStringSubmatch(elem); m != nil && m[0] == elem {
			if items, ok := listValue(args[m[1]]); ok {
				out = append(out, items...)
				continue
			}
		}

		out = append(out, placeholder.ReplaceAllStringFunc(elem, func(m string) string {
			key := m[1 : len(m)-1]
			if !args.Has(key) {
				missing = append(missing, key)
				return m
			}

			s, err := cast.ToStringE(args[key])
			if err != nil {
				invalid = append(invalid, key)
				return m
			}

			return s
		}))
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing arguments: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("arguments cannot be used inside a word: %s", strings.Join(invalid, ", "))
	}

	return out, nil
}

func listValue(v any) ([]string, bool) {
	switch v.(type) {
	case []string, []any:
		items, err := cast.ToStringSliceE(v)
		return items, err == nil
	default:
		return nil, false
	}
}
