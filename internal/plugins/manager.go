package plugins

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/andrei-cloud/go_onecode/internal/errorcodes"
)

// Load builds the plugin for id. Candidates are the factories registered for
// id.Name, in registration order, followed by the manifest at id.Path when it
// declares commands. The first candidate is used. Construction errors, panics
// and instances without a name are reported as ErrPluginLoad. A failure in
// Configure is logged and does not fail the load.
func (r *Registry) Load(id Identifier) (Plugin, error) {
	candidates := r.candidates(id)

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%s: no plugin constructor found: %w", id.Name, errorcodes.ErrPluginLoad)
	case 1:
	default:
		r.logger.Warn().
			Str("identifier", id.Name).
			Int("candidates", len(candidates)).
			Msg("multiple plugin constructors found, using first one")
	}

	p, err := r.construct(candidates[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", id.Name, err, errorcodes.ErrPluginLoad)
	}

	if err := r.configure(p); err != nil {
		r.logger.Warn().Err(err).Str("plugin", p.Name()).Msg("plugin rejected its configuration")
	}

	r.logger.Info().Str("plugin", p.Name()).Str("identifier", id.Name).Msg("loaded plugin")

	return p, nil
}

func (r *Registry) candidates(id Identifier) []Factory {
	r.mu.RLock()
	candidates := append([]Factory(nil), r.factories[id.Name]...)
	r.mu.RUnlock()

	if id.Path == "" || !id.IsManifest() {
		return candidates
	}

	m, err := ReadManifest(id.Path)
	if err != nil {
		r.logger.Warn().Err(err).Str("path", id.Path).Msg("ignoring invalid plugin manifest")
		return candidates
	}
	if len(m.Commands) == 0 {
		return candidates
	}

	return append(candidates, func(deps Deps) (Plugin, error) {
		return newManifestPlugin(m, deps), nil
	})
}

func (r *Registry) construct(f Factory) (p Plugin, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = fmt.Errorf("plugin constructor panicked: %v", rec)
		}
	}()

	p, err = f(r.deps)
	if err != nil {
		return nil, err
	}
	if p == nil || strings.TrimSpace(p.Name()) == "" {
		return nil, errors.New("plugin has no name")
	}

	return p, nil
}

// configure hands p its plugin section. A rejected configuration or a panic
// in Configure is reported as an error; the plugin stays usable.
func (r *Registry) configure(p Plugin) (err error) {
	c, ok := p.(Configurable)
	if !ok || r.deps.Settings == nil {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin configure panicked: %v", rec)
		}
	}()

	if !c.Configure(r.deps.Settings.PluginConfig(p.Name())) {
		return errors.New("configuration rejected")
	}

	return nil
}

// LoadAll discovers plugins on the search paths and registers every one that
// loads. Failures are logged and skipped. A later plugin with an existing name
// replaces the earlier one. It returns the number of plugins loaded and the
// number discovered.
func (r *Registry) LoadAll() (loaded, discovered int) {
	r.logger.Info().Strs("paths", r.Paths()).Msg("loading plugins")

	for id := range Discover(r.Paths()) {
		discovered++
		r.logger.Debug().Str("identifier", id.Name).Str("path", id.Path).Msg("discovered plugin")

		p, err := r.Load(id)
		if err != nil {
			r.logger.Error().Err(err).Str("identifier", id.Name).Msg("failed to load plugin")
			continue
		}

		r.put(entry{plugin: p, id: id})
		loaded++
	}

	r.logger.Info().Int("loaded", loaded).Int("discovered", discovered).Msg("plugins loaded")

	return loaded, discovered
}

// LoadFactories loads every compiled-in factory whose identifier is not yet
// backing a registered plugin, so builtins are present without a marker file
// on the search paths. It returns the number of plugins loaded.
func (r *Registry) LoadFactories() int {
	r.mu.RLock()
	identifiers := slices.Sorted(maps.Keys(r.factories))
	present := make(map[string]bool, len(r.plugins))
	for _, e := range r.plugins {
		present[e.id.Name] = true
	}
	r.mu.RUnlock()

	loaded := 0
	for _, identifier := range identifiers {
		if present[identifier] {
			continue
		}

		id := Identifier{Name: identifier}
		p, err := r.Load(id)
		if err != nil {
			r.logger.Error().Err(err).Str("identifier", identifier).Msg("failed to load builtin plugin")
			continue
		}

		r.put(entry{plugin: p, id: id})
		loaded++
	}

	return loaded
}

// Reload rebuilds the named plugin from the identifier it was loaded from.
// The replacement is built first; the registry entry is swapped only when it
// loads and keeps the same name, so a failed reload leaves the working
// instance in place. The replaced instance is cleaned up.
func (r *Registry) Reload(name string) error {
	r.mu.RLock()
	old, ok := r.plugins[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%s: %w", name, errorcodes.ErrPluginNotFound)
	}
	if old.id.Name == "" {
		return fmt.Errorf("%s: plugin was registered directly and cannot be reloaded: %w",
			name, errorcodes.ErrPluginLoad)
	}

	p, err := r.Load(old.id)
	if err != nil {
		r.logger.Error().Err(err).Str("plugin", name).Msg("failed to reload plugin")
		return err
	}
	if p.Name() != name {
		cleanup(p, r.logger)
		return fmt.Errorf("%s: reloaded plugin is named %q: %w", name, p.Name(), errorcodes.ErrPluginLoad)
	}

	r.mu.Lock()
	current, ok := r.plugins[name]
	r.plugins[name] = entry{plugin: p, id: old.id}
	r.mu.Unlock()

	if ok {
		cleanup(current.plugin, r.logger)
	}

	r.logger.Info().Str("plugin", name).Msg("reloaded plugin")

	return nil
}
