package plugins

import (
	"io"
	"os"
	"os/exec"

	"github.com/andrei-cloud/go_onecode/internal/process"
	"github.com/rs/zerolog"
)

// Settings is the read side of the configuration store plugins depend on.
type Settings interface {
	Get(key string, def any) any
	PluginConfig(name string) map[string]any
}

// Deps are the shared collaborators handed to every plugin factory.
type Deps struct {
	Settings   Settings
	Runner     process.Runner
	Supervisor *process.Supervisor
	// LookPath resolves tool names; exec.LookPath when nil.
	LookPath func(file string) (string, error)
	// Out receives user-facing output; os.Stdout when nil.
	Out    io.Writer
	Logger zerolog.Logger
}

// Which reports whether tool is on the execution path.
func (d Deps) Which(tool string) bool {
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	_, err := lookPath(tool)

	return err == nil
}

// Stdout returns the writer for user-facing output.
func (d Deps) Stdout() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}

	return d.Out
}

// Setting reads key from Settings, or returns def when no store is wired.
func (d Deps) Setting(key string, def any) any {
	if d.Settings == nil {
		return def
	}

	return d.Settings.Get(key, def)
}

// Factory builds a plugin instance.
type Factory func(deps Deps) (Plugin, error)
