package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
}

func TestFindFilesByExtension_Directory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.yaml"))
	touch(t, filepath.Join(root, "a.json"))
	touch(t, filepath.Join(root, "nested", "c.HCL"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".git", "config.json"))

	files, err := FindFilesByExtension(root, ".json", ".yaml", ".hcl")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.json"),
		filepath.Join(root, "b.yaml"),
		filepath.Join(root, "nested", "c.HCL"),
	}, files)
}

func TestFindFilesByExtension_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.txt")
	touch(t, path)

	files, err := FindFilesByExtension(path, ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestFindFilesByExtension_Missing(t *testing.T) {
	_, err := FindFilesByExtension(filepath.Join(t.TempDir(), "nope"), ".json")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindFilesByExtension_NoExtensions(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir()) })
}
