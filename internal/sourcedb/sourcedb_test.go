package sourcedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrlang/attrls/internal/vfs"
)

func TestApplyChangeStampsFileContentRevision(t *testing.T) {
	v := vfs.New("")
	file := v.SetPathContent(mustPath(t, "/a.attrl"), []byte("1"))
	change := v.TakeChange()

	db := New(v)
	touched := db.ApplyChange(7, change)

	require.Equal(t, []vfs.FileId{file}, touched)
	rev, ok := db.FileContentRevision(file)
	require.True(t, ok)
	assert.EqualValues(t, 7, rev)
}

func TestApplyChangeReplacesSourceRoots(t *testing.T) {
	v := vfs.New("")
	file := v.SetPathContent(mustPath(t, "/a.attrl"), []byte("1"))
	v.TakeChange()

	fs := vfs.NewFileSet()
	fs.Insert(file, mustPath(t, "/a.attrl"))
	root := vfs.SourceRoot{ID: 1, Set: fs, Entry: &file}
	v.SetRoots([]vfs.SourceRoot{root})
	change := v.TakeChange()

	db := New(v)
	db.ApplyChange(1, change)

	got, ok := db.SourceRoot(1)
	require.True(t, ok)
	assert.Equal(t, root.ID, got.ID)

	owner, ok := db.SourceRootFor(file)
	require.True(t, ok)
	assert.EqualValues(t, 1, owner)
	assert.EqualValues(t, 1, db.RootsRevision())
}

func mustPath(t *testing.T, s string) vfs.VfsPath {
	t.Helper()
	p, ok := vfs.NewVfsPath(s)
	require.True(t, ok)
	return p
}
