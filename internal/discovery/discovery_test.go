package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrlang/attrls/internal/host"
	"github.com/attrlang/attrls/internal/vfs"
)

func mustVfsPath(t *testing.T, s string) vfs.VfsPath {
	t.Helper()
	p, ok := vfs.NewVfsPath(s)
	require.True(t, ok)
	return p
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestSeedLoadsSourceFilesOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.attrl", "{ x = 1 }")
	writeFile(t, dir, "sub/b.attrl", "{ y = 2 }")
	writeFile(t, dir, "README.md", "not a source file")

	h := host.New("")
	require.NoError(t, h.Activate())

	touched, entry, err := Seed(h, DefaultOptions(dir))
	require.NoError(t, err)
	require.NotNil(t, entry)

	files := h.Vfs().AllFiles()
	assert.Len(t, files, 2)
	assert.NotEmpty(t, touched)

	aID, ok := h.Vfs().FileForPath(mustVfsPath(t, "/a.attrl"))
	require.True(t, ok)
	content, ok := h.Vfs().FileContent(aID)
	require.True(t, ok)
	assert.Equal(t, "{ x = 1 }", string(content))

	_, ok = h.Vfs().FileForPath(mustVfsPath(t, "/sub/b.attrl"))
	assert.True(t, ok)
}

func TestSeedHonorsIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "build/\nsecret.attrl\n")
	writeFile(t, dir, "a.attrl", "{}")
	writeFile(t, dir, "secret.attrl", "{}")
	writeFile(t, dir, "build/generated.attrl", "{}")

	h := host.New("")
	require.NoError(t, h.Activate())

	_, _, err := Seed(h, DefaultOptions(dir))
	require.NoError(t, err)

	files := h.Vfs().AllFiles()
	assert.Len(t, files, 1, "only a.attrl should survive the ignore rules")

	_, ok := h.Vfs().FileForPath(mustVfsPath(t, "/a.attrl"))
	assert.True(t, ok)
}

func TestSeedSkipsBuiltinIgnoredDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.attrl", "{}")
	writeFile(t, dir, ".git/HEAD", "ref: refs/heads/main")

	h := host.New("")
	require.NoError(t, h.Activate())

	_, _, err := Seed(h, DefaultOptions(dir))
	require.NoError(t, err)

	assert.Len(t, h.Vfs().AllFiles(), 1)
}

func TestSeedEmptyWorkspace(t *testing.T) {
	dir := t.TempDir()

	h := host.New("")
	require.NoError(t, h.Activate())

	touched, entry, err := Seed(h, DefaultOptions(dir))
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Empty(t, touched)
}

