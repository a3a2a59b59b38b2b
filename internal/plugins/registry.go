package plugins

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/andrei-cloud/go_onecode/internal/logging"
	"github.com/rs/zerolog"
)

// Info is a point-in-time description of a registered plugin.
type Info struct {
	Name        string
	Description string
	Version     string
	Available   bool
	Commands    []string
	// Extra holds the additional fields reported by an InfoProvider.
	Extra map[string]any
}

// Map returns the info as a single map, extra fields first so the standard
// fields always win.
func (i Info) Map() map[string]any {
	out := make(map[string]any, len(i.Extra)+5)
	for k, v := range i.Extra {
		out[k] = v
	}
	out["name"] = i.Name
	out["description"] = i.Description
	out["version"] = i.Version
	out["available"] = i.Available
	out["commands"] = i.Commands

	return out
}

// Describe collects the info of p, probing its availability now.
func Describe(p Plugin) Info {
	info := Info{
		Name:        p.Name(),
		Description: p.Description(),
		Version:     p.Version(),
		Available:   p.IsAvailable(),
		Commands:    append([]string(nil), p.Commands()...),
		Extra:       map[string]any{},
	}

	if ip, ok := p.(InfoProvider); ok {
		for k, v := range ip.Info() {
			switch k {
			case "name", "description", "version", "available", "commands":
				continue
			}
			info.Extra[k] = v
		}
	}

	return info
}

type entry struct {
	plugin Plugin
	id     Identifier
}

// Registry owns the loaded plugin instances, keyed by name.
type Registry struct {
	mu        sync.RWMutex
	plugins   map[string]entry
	paths     []string
	factories map[string][]Factory

	deps   Deps
	logger zerolog.Logger
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLogger replaces the registry logger.
func WithLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// WithSearchPaths replaces the default search paths.
func WithSearchPaths(paths ...string) RegistryOption {
	return func(r *Registry) {
		r.paths = nil
		for _, p := range paths {
			if !slices.Contains(r.paths, p) {
				r.paths = append(r.paths, p)
			}
		}
	}
}

// NewRegistry returns an empty registry searching DefaultSearchPaths unless
// WithSearchPaths is given.
func NewRegistry(deps Deps, opts ...RegistryOption) *Registry {
	r := &Registry{
		plugins:   make(map[string]entry),
		paths:     DefaultSearchPaths(),
		factories: make(map[string][]Factory),
		deps:      deps,
		logger:    logging.Component("plugins"),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RegisterFactory binds a compiled-in constructor to a plugin identifier.
// Several factories may share an identifier; the first one registered is used.
func (r *Registry) RegisterFactory(identifier string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[identifier] = append(r.factories[identifier], f)
}

// AddPath appends an existing directory to the search paths. It reports
// whether the path was added.
func (r *Registry) AddPath(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		r.logger.Debug().Str("path", path).Msg("ignoring missing plugin path")
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.paths, path) {
		return false
	}
	r.paths = append(r.paths, path)
	r.logger.Debug().Str("path", path).Msg("added plugin path")

	return true
}

// Paths returns the search paths in scan order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.paths...)
}

// Register adds an already constructed plugin, replacing any plugin with the
// same name.
func (r *Registry) Register(p Plugin) {
	r.put(entry{plugin: p})
}

func (r *Registry) put(e entry) {
	name := e.plugin.Name()

	r.mu.Lock()
	old, exists := r.plugins[name]
	r.plugins[name] = e
	r.mu.Unlock()

	if !exists {
		return
	}

	r.logger.Warn().
		Str("plugin", name).
		Str("replaced", describeSource(old.id)).
		Str("by", describeSource(e.id)).
		Msg("plugin name collision, later plugin wins")
	cleanup(old.plugin, r.logger)
}

func describeSource(id Identifier) string {
	switch {
	case id.Path != "":
		return filepath.Clean(id.Path)
	case id.Name != "":
		return id.Name
	default:
		return "registered"
	}
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.plugins[name]

	return e.plugin, ok
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// List describes every registered plugin, sorted by name. Availability is
// probed outside the registry lock.
func (r *Registry) List() []Info {
	r.mu.RLock()
	snapshot := make([]Plugin, 0, len(r.plugins))
	for _, e := range r.plugins {
		snapshot = append(snapshot, e.plugin)
	}
	r.mu.RUnlock()

	infos := make([]Info, 0, len(snapshot))
	for _, p := range snapshot {
		infos = append(infos, Describe(p))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}

// Close runs the cleanup hook of every plugin and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	plugins := r.plugins
	r.plugins = make(map[string]entry)
	r.mu.Unlock()

	for _, e := range plugins {
		cleanup(e.plugin, r.logger)
	}
}

func cleanup(p Plugin, logger zerolog.Logger) {
	lc, ok := p.(Lifecycle)
	if !ok {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Str("plugin", p.Name()).Msg("plugin cleanup panicked")
		}
	}()

	if !lc.Cleanup() {
		logger.Warn().Str("plugin", p.Name()).Msg("plugin cleanup reported failure")
	}
}
