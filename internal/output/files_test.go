package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("data"), 0o644))
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFiles(t, dir, "a_urls.json", "b_nutricional.csv", "c.xlsx", "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	files, err := ListFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
		assert.Equal(t, int64(4), f.Size)
		assert.False(t, f.ModTime.IsZero())
	}
	assert.Equal(t, []string{"c.xlsx", "b_nutricional.csv", "a_urls.json"}, names)
}

func TestListFiles_MissingDir(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "dados"))
	assert.ErrorIs(t, err, ErrDirMissing)
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	writeTestFiles(t, dir, "a.json", "b.csv", "keep.txt")

	n, err := Clean(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.NoFileExists(t, filepath.Join(dir, "a.json"))
	assert.NoFileExists(t, filepath.Join(dir, "b.csv"))
	assert.FileExists(t, filepath.Join(dir, "keep.txt"))

	n, err = Clean(dir)
	require.NoError(t, err)
	assert.Zero(t, n)
}
