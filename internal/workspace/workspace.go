// Package workspace locates ROS 2 workspaces and packages on disk.
package workspace

import (
	"encoding/xml"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// indicators are the directories a colcon workspace root usually holds.
var indicators = []string{"src", "build", "install", "log"}

// FindROS2Workspace walks from start towards the filesystem root and returns
// the first directory holding at least two of src, build, install and log.
func FindROS2Workspace(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}

	for {
		count := 0
		for _, name := range indicators {
			if exists(filepath.Join(dir, name)) {
				count++
			}
		}
		if count >= 2 {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// FindPackageXML returns the nearest package.xml at or above start.
func FindPackageXML(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}

	for {
		candidate := filepath.Join(dir, "package.xml")
		if exists(candidate) {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type packageManifest struct {
	XMLName xml.Name `xml:"package"`
	Name    string   `xml:"name"`
}

// PackageName reads the <name> element of a package.xml file.
func PackageName(packageXML string) (string, error) {
	data, err := os.ReadFile(packageXML)
	if err != nil {
		return "", err
	}

	var m packageManifest
	if err := xml.Unmarshal(data, &m); err != nil {
		return "", err
	}

	name := strings.TrimSpace(m.Name)
	if name == "" {
		return "", errors.New("package.xml has no name")
	}

	return name, nil
}

// IsPackage reports whether dir contains a package.xml.
func IsPackage(dir string) bool {
	return exists(filepath.Join(dir, "package.xml"))
}

// CountPackages counts package.xml files below the workspace src directory.
func CountPackages(root string) int {
	src := filepath.Join(root, "src")
	if !exists(src) {
		return 0
	}

	count := 0
	_ = filepath.WalkDir(src, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == "package.xml" {
			count++
		}

		return nil
	})

	return count
}

// SetupScript returns the workspace setup script when the workspace has been built.
func SetupScript(root string) (string, bool) {
	script := filepath.Join(root, "install", "setup.bash")

	return script, exists(script)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
