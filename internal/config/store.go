package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
	"github.com/andrei-cloud/go_onecode/internal/logging"
	"github.com/rs/zerolog"
)

// Store owns the resolved configuration tree.
type Store struct {
	mu     sync.RWMutex
	tree   Tree
	file   string // last document loaded or saved
	logger zerolog.Logger

	bundledPath string
	userPath    string
	env         *envBinding
}

// Option customizes a Store.
type Option func(*Store)

// WithBundledPath overrides the location of the bundled default document.
func WithBundledPath(path string) Option {
	return func(s *Store) { s.bundledPath = path }
}

// WithUserPath overrides the location of the per-user document.
func WithUserPath(path string) Option {
	return func(s *Store) { s.userPath = path }
}

// WithLogger replaces the store's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New returns a Store holding the compiled-in defaults only.
func New(opts ...Option) *Store {
	s := &Store{
		tree:        Defaults(),
		logger:      logging.Component("config"),
		bundledPath: BundledPath(),
		userPath:    UserPath(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.env = newEnvBinding()

	return s
}

// Resolve builds a Store by layering, in order: compiled-in defaults, the
// bundled default document, the per-user document, the explicit document
// (when explicitPath is not empty) and environment overrides. Only a failure
// to load the explicit document is returned.
func Resolve(explicitPath string, opts ...Option) (*Store, error) {
	s := New(opts...)

	s.mergeOptional(s.bundledPath, false)
	s.mergeOptional(s.userPath, true)

	if explicitPath != "" {
		if err := s.Load(explicitPath); err != nil {
			return nil, err
		}
	}

	s.ApplyEnvironmentOverrides()

	return s, nil
}

// BundledPath returns the default document shipped next to the executable.
func BundledPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}

	return filepath.Join(filepath.Dir(exe), "configs", "default_config.yaml")
}

// UserPath returns the per-user configuration document.
func UserPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "onecode", "config.yaml")
}

func (s *Store) mergeOptional(path string, remember bool) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	doc, err := ReadDocument(path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to load configuration document")
		return
	}

	s.mu.Lock()
	merge(&s.tree, doc, s.logger)
	if remember {
		s.file = path
	}
	s.mu.Unlock()

	s.logger.Debug().Str("path", path).Msg("loaded configuration document")
}

// Load merges the document at path into the tree and remembers path as the
// save target.
func (s *Store) Load(path string) error {
	doc, err := ReadDocument(path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to load configuration")
		return fmt.Errorf("%s: %v: %w", path, err, errorcodes.ErrConfigLoad)
	}

	s.mu.Lock()
	merge(&s.tree, doc, s.logger)
	s.file = path
	s.mu.Unlock()

	s.logger.Info().Str("path", path).Msg("loaded configuration")

	return nil
}

// File returns the document the store was last loaded from or saved to.
func (s *Store) File() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.file
}

// Snapshot returns a deep copy of the current tree.
func (s *Store) Snapshot() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Clone()
}

// Get returns the value at the dot-separated key, or def when any segment is
// missing. Unset optional fields yield nil.
func (s *Store) Get(key string, def any) any {
	parts := strings.Split(key, ".")
	if key == "" {
		return def
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	head := parts[0]
	if head == "plugins" {
		if len(parts) == 1 {
			return cloneValue(map[string]any(s.tree.Plugins))
		}
		v, ok := lookup(s.tree.Plugins, parts[1:])
		if !ok {
			return def
		}

		return cloneValue(v)
	}

	fields, ok := sections[head]
	if !ok {
		return def
	}

	switch len(parts) {
	case 1:
		return s.section(head)
	case 2:
		f, ok := fields[parts[1]]
		if !ok {
			return def
		}

		return f.get(&s.tree)
	default:
		return def
	}
}

func (s *Store) section(name string) any {
	t := s.tree.Clone()
	switch name {
	case "build":
		return t.Build
	case "simulation":
		return t.Simulation
	default:
		return t.Logging
	}
}

func lookup(m map[string]any, path []string) (any, bool) {
	var cur any = m
	for _, p := range path {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[p]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

// Set assigns value at the dot-separated key. Keys must have at least two
// segments. Below build, simulation and logging only recognized leaves are
// accepted and the value is coerced to the field type; below plugins any
// path is accepted and intermediate mappings are created. On error the tree
// is unchanged.
func (s *Store) Set(key string, value any) error {
	parts := strings.Split(key, ".")
	if len(parts) < 2 || slices.Contains(parts, "") {
		return fmt.Errorf("%q: %w", key, errorcodes.ErrInvalidKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parts[0] == "plugins" {
		if s.tree.Plugins == nil {
			s.tree.Plugins = map[string]any{}
		}

		return setPath(s.tree.Plugins, parts[1:], value)
	}

	fields, ok := sections[parts[0]]
	if !ok || len(parts) != 2 {
		return fmt.Errorf("%q: %w", key, errorcodes.ErrInvalidKey)
	}

	f, ok := fields[parts[1]]
	if !ok {
		return fmt.Errorf("%q: %w", key, errorcodes.ErrInvalidKey)
	}

	if err := f.set(&s.tree, value); err != nil {
		return fmt.Errorf("%q: %v: %w", key, err, errorcodes.ErrInvalidKey)
	}

	return nil
}

func setPath(m map[string]any, path []string, value any) error {
	node := m
	for i, p := range path[:len(path)-1] {
		next, exists := node[p]
		if !exists || next == nil {
			child := map[string]any{}
			node[p] = child
			node = child

			continue
		}

		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%q is not a mapping: %w",
				strings.Join(path[:i+1], "."), errorcodes.ErrInvalidKey)
		}
		node = child
	}
	node[path[len(path)-1]] = value

	return nil
}

// Save writes the whole tree as YAML. An empty path means the last loaded
// document, or the per-user document when nothing was loaded.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == "" {
		path = s.file
	}
	if path == "" {
		path = s.userPath
	}
	if path == "" {
		return errors.New("no configuration path to save to")
	}

	if err := writeDocument(path, s.tree); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to save configuration")
		return fmt.Errorf("failed to save configuration to %s: %w", path, err)
	}
	s.file = path

	s.logger.Info().Str("path", path).Msg("saved configuration")

	return nil
}

// PluginConfig returns a copy of the named plugin's document. Missing or
// non-mapping documents yield an empty map.
func (s *Store) PluginConfig(name string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.tree.Plugins[name].(map[string]any)
	if !ok {
		return map[string]any{}
	}

	return cloneValue(doc).(map[string]any)
}

// SetPluginConfig replaces the named plugin's document.
func (s *Store) SetPluginConfig(name string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree.Plugins == nil {
		s.tree.Plugins = map[string]any{}
	}
	s.tree.Plugins[name] = cloneValue(doc)
}

// UpdatePluginConfig merges doc into the named plugin's document, key by key.
func (s *Store) UpdatePluginConfig(name string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree.Plugins == nil {
		s.tree.Plugins = map[string]any{}
	}

	current, ok := s.tree.Plugins[name].(map[string]any)
	if !ok {
		current = map[string]any{}
		s.tree.Plugins[name] = current
	}
	for k, v := range doc {
		current[k] = cloneValue(v)
	}
}
