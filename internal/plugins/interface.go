// Package plugins defines the plugin capability contract and the registry
// that discovers, loads and owns plugin instances.
package plugins

import (
	"context"
	"fmt"
	"sync"
)

// Operation is a named plugin command. The returned integer is the exit code.
type Operation func(ctx context.Context, args Args) (int, error)

// Plugin is the capability contract every plugin satisfies.
type Plugin interface {
	// Name is the unique registry key.
	Name() string
	Description() string
	Version() string
	// Commands lists the operation names in display order.
	Commands() []string
	// IsAvailable probes for the external tooling the plugin needs.
	IsAvailable() bool
	// Operations maps command names to their implementations.
	Operations() map[string]Operation
}

// InfoProvider contributes extra fields to the plugin listing.
type InfoProvider interface {
	Info() map[string]any
}

// ArgValidator checks arguments before a command runs.
type ArgValidator interface {
	ValidateArgs(command string, args Args) bool
}

// SchemaProvider describes the settings a plugin accepts. Informational only.
type SchemaProvider interface {
	ConfigSchema() map[string]any
}

// Configurable receives the plugin's section of the configuration.
type Configurable interface {
	Configure(settings map[string]any) bool
}

// Lifecycle hooks. Both must be idempotent.
type Lifecycle interface {
	Setup() bool
	Cleanup() bool
}

// HelpProvider returns help text for the plugin or one of its commands.
type HelpProvider interface {
	Help(command string) string
}

// Base supplies the defaulted parts of the contract. Concrete plugins embed it
// and override what they need.
type Base struct{}

func (Base) Description() string { return "No description provided" }

func (Base) Version() string { return "1.0.0" }

func (Base) Commands() []string { return nil }

func (Base) ValidateArgs(string, Args) bool { return true }

func (Base) ConfigSchema() map[string]any { return map[string]any{} }

func (Base) Configure(map[string]any) bool { return true }

func (Base) Setup() bool { return true }

func (Base) Cleanup() bool { return true }

// DefaultInfo returns the fields every plugin listing carries.
func DefaultInfo(p Plugin) map[string]any {
	return map[string]any{
		"name":        p.Name(),
		"description": p.Description(),
		"version":     p.Version(),
		"available":   p.IsAvailable(),
		"commands":    append([]string(nil), p.Commands()...),
	}
}

// Help returns the help text for p, or for one of its commands when command
// is not empty.
func Help(p Plugin, command string) string {
	if h, ok := p.(HelpProvider); ok {
		if text := h.Help(command); text != "" {
			return text
		}
	}
	if command == "" {
		return fmt.Sprintf("%s: %s", p.Name(), p.Description())
	}

	return fmt.Sprintf("No help available for command: %s", command)
}

// Probe caches the result of an availability check until invalidated.
type Probe struct {
	check func() bool

	mu    sync.Mutex
	known bool
	value bool
}

// NewProbe wraps check.
func NewProbe(check func() bool) *Probe {
	return &Probe{check: check}
}

// Available runs the check on first use and returns the cached result afterwards.
func (p *Probe) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.known {
		p.value = p.check()
		p.known = true
	}

	return p.value
}

// Invalidate forces the next Available call to run the check again.
func (p *Probe) Invalidate() {
	p.mu.Lock()
	p.known = false
	p.mu.Unlock()
}
