package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const talkerXML = `<?xml version="1.0"?>
<package format="3">
  <name> demo_talker </name>
  <version>0.1.0</version>
</package>
`

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
}

func TestFindROS2Workspace(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkdirs(t, root, "src/demo/launch", "build")

	got, ok := FindROS2Workspace(filepath.Join(root, "src", "demo", "launch"))
	require.True(t, ok)

	want, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFindROS2WorkspaceNeedsTwoIndicators(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkdirs(t, root, "src")

	got, ok := FindROS2Workspace(root)
	if ok {
		// Some ancestor of the temp dir happens to look like a workspace.
		assert.NotEqual(t, root, got)
	}
}

func TestPackageHelpers(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkdirs(t, root, "src/talker/src", "src/nested/listener", "src/empty", "build")
	require.NoError(t, os.WriteFile(filepath.Join(root, "src/talker/package.xml"), []byte(talkerXML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src/nested/listener/package.xml"),
		[]byte("<package><name>listener</name></package>"), 0o644))

	xmlPath, ok := FindPackageXML(filepath.Join(root, "src/talker/src"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src/talker/package.xml"), xmlPath)

	name, err := PackageName(xmlPath)
	require.NoError(t, err)
	assert.Equal(t, "demo_talker", name)

	assert.True(t, IsPackage(filepath.Join(root, "src/talker")))
	assert.False(t, IsPackage(filepath.Join(root, "src/empty")))
	assert.Equal(t, 2, CountPackages(root))
	assert.Equal(t, 0, CountPackages(filepath.Join(root, "src/empty")))

	_, ok = SetupScript(root)
	assert.False(t, ok)
}

func TestPackageNameErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	noName := filepath.Join(dir, "a.xml")
	broken := filepath.Join(dir, "b.xml")
	require.NoError(t, os.WriteFile(noName, []byte("<package><version>1</version></package>"), 0o644))
	require.NoError(t, os.WriteFile(broken, []byte("<package><name>"), 0o644))

	_, err := PackageName(noName)
	assert.Error(t, err)
	_, err = PackageName(broken)
	assert.Error(t, err)
	_, err = PackageName(filepath.Join(dir, "missing.xml"))
	assert.Error(t, err)
}
