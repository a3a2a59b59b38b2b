package plugins

import (
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// EnvPluginPath lists extra plugin directories, separated by colons.
const EnvPluginPath = "ONECODE_PLUGIN_PATH"

const pluginSuffix = "_plugin"

// Identifier names a discovered plugin: the file stem and the file it was found as.
type Identifier struct {
	Name string
	Path string
}

// IsManifest reports whether the identifier points at a YAML manifest.
func (id Identifier) IsManifest() bool {
	switch strings.ToLower(filepath.Ext(id.Path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Discover lazily scans paths in order and yields one identifier per plugin
// stem found in each directory. A stem matches when it ends in "_plugin" and
// does not start with "__". Missing or unreadable directories yield nothing.
// When one directory holds several files with the same stem, a manifest wins.
func Discover(paths []string) iter.Seq[Identifier] {
	return func(yield func(Identifier) bool) {
		for _, dir := range paths {
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}

			var found []Identifier
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				stem, ok := pluginStem(e.Name())
				if !ok {
					continue
				}

				id := Identifier{Name: stem, Path: filepath.Join(dir, e.Name())}
				i := slices.IndexFunc(found, func(f Identifier) bool { return f.Name == stem })
				switch {
				case i < 0:
					found = append(found, id)
				case id.IsManifest() && !found[i].IsManifest():
					found[i] = id
				}
			}

			for _, id := range found {
				if !yield(id) {
					return
				}
			}
		}
	}
}

func pluginStem(fileName string) (string, bool) {
	if strings.HasPrefix(fileName, "__") {
		return "", false
	}
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if !strings.HasSuffix(stem, pluginSuffix) {
		return "", false
	}

	return stem, true
}

// DefaultSearchPaths returns the built-in plugin directory, the per-user
// directory and the entries of ONECODE_PLUGIN_PATH, in that order. Only the
// built-in directory is kept when missing.
func DefaultSearchPaths() []string {
	var paths []string
	add := func(p string) {
		if p != "" && !slices.Contains(paths, p) {
			paths = append(paths, p)
		}
	}

	add(builtinPath())

	if user := UserPluginDir(); user != "" && isDir(user) {
		add(user)
	}

	for _, p := range filepath.SplitList(os.Getenv(EnvPluginPath)) {
		if isDir(p) {
			add(p)
		}
	}

	return paths
}

// UserPluginDir returns ~/.onecode/plugins, or "" when the home directory is unknown.
func UserPluginDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".onecode", "plugins")
}

// builtinPath prefers the directory next to the executable and falls back to
// ./plugins when running from a source checkout.
func builtinPath() string {
	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Join(filepath.Dir(exe), "plugins"); isDir(dir) {
			return dir
		}
	}

	return "plugins"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
