package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrlang/attrls/internal/vfs"
)

func mustPath(t *testing.T, s string) vfs.VfsPath {
	t.Helper()
	p, ok := vfs.NewVfsPath(s)
	require.True(t, ok)
	return p
}

func TestLifecycleTransitions(t *testing.T) {
	h := New("")
	assert.Equal(t, StateFresh, h.State())

	_, err := h.SetPathContent(mustPath(t, "/a.attrl"), []byte("1"))
	assert.Error(t, err, "cannot apply a change before Activate")

	require.NoError(t, h.Activate())
	assert.Equal(t, StateActive, h.State())
	assert.Error(t, h.Activate(), "cannot activate twice")

	require.NoError(t, h.Shutdown())
	assert.Equal(t, StateStopping, h.State())
	assert.ErrorIs(t, h.Shutdown(), ErrShutdownRequested)

	h.Exit()
	assert.Equal(t, StateTerminated, h.State())

	_, err = h.Snapshot()
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestApplyChangeInvalidatesTouchedFiles(t *testing.T) {
	h := New("")
	require.NoError(t, h.Activate())

	touched, err := h.SetPathContent(mustPath(t, "/a.attrl"), []byte("1"))
	require.NoError(t, err)
	require.Len(t, touched, 1)
	file := touched[0]

	snap, err := h.Snapshot()
	require.NoError(t, err)
	diags, err := snap.Diagnostics(file, 0)
	require.NoError(t, err)
	assert.Empty(t, diags)
	snap.Close()

	touched, err = h.SetPathContent(mustPath(t, "/a.attrl"), []byte("undefinedThing"))
	require.NoError(t, err)
	assert.Equal(t, []vfs.FileId{file}, touched)

	snap2, err := h.Snapshot()
	require.NoError(t, err)
	defer snap2.Close()
	diags, err = snap2.Diagnostics(file, 0)
	require.NoError(t, err)
	require.Len(t, diags, 1)
}

func TestApplyChangeNoOpIsAbandoned(t *testing.T) {
	h := New("")
	require.NoError(t, h.Activate())

	touched, err := h.ApplyChange(func(v *vfs.Vfs) {})
	require.NoError(t, err)
	assert.Nil(t, touched)
}

func TestSetRootsSeedsSourceDB(t *testing.T) {
	h := New("")
	require.NoError(t, h.Activate())

	touched, err := h.SetPathContent(mustPath(t, "/a.attrl"), []byte("1"))
	require.NoError(t, err)
	file := touched[0]

	fs := vfs.NewFileSet()
	fs.Insert(file, mustPath(t, "/a.attrl"))
	root := vfs.SourceRoot{ID: 1, Set: fs, Entry: &file}

	_, err = h.SetRoots([]vfs.SourceRoot{root})
	require.NoError(t, err)

	snap, err := h.Snapshot()
	require.NoError(t, err)
	defer snap.Close()
	_ = snap
}
