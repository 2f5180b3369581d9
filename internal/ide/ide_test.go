package ide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/querydb"
	"github.com/attrlang/attrls/internal/sourcedb"
	"github.com/attrlang/attrls/internal/vfs"
)

func newAnalysis(t *testing.T, src string) (*Analysis, vfs.FileId) {
	t.Helper()
	v := vfs.New("")
	path, ok := vfs.NewVfsPath("/a.attrl")
	require.True(t, ok)
	file := v.SetPathContent(path, []byte(src))
	change := v.TakeChange()

	sdb := sourcedb.New(v)
	db := querydb.NewDatabase()
	ticket := db.BeginWrite()
	sdb.ApplyChange(1, change)
	ticket.Commit()

	snap := db.Snapshot()
	return NewAnalysis(snap, sdb, NewCaches()), file
}

// TestRenameOffsets exercises the exact scenario from SPEC_FULL.md §8:
// renaming the x bound by "let x = 1; in x + x" must touch offsets 4, 14
// and 18 — the binding's own name token and both later references.
func TestRenameOffsets(t *testing.T) {
	src := "let x = 1; in x + x"
	a, file := newAnalysis(t, src)
	defer a.Close()

	prep, err := a.PrepareRename(vfs.NewFilePos(file, 4))
	require.NoError(t, err)
	assert.Equal(t, "x", prep.Text)
	assert.EqualValues(t, 4, prep.Range.Start)

	edit, err := a.Rename(vfs.NewFilePos(file, 4), "renamed")
	require.NoError(t, err)
	edits := edit.Edits[file]
	require.Len(t, edits, 3)

	var starts []int
	for _, e := range edits {
		starts = append(starts, int(e.Range.Start))
		assert.Equal(t, "renamed", e.NewText)
	}
	assert.Equal(t, []int{4, 14, 18}, starts)
}

func TestGotoDefinitionFromReference(t *testing.T) {
	src := "let x = 1; in x"
	a, file := newAnalysis(t, src)
	defer a.Close()

	locs, err := a.GotoDefinition(vfs.NewFilePos(file, 14))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.EqualValues(t, 4, locs[0].Range.Start)
}

func TestReferencesIncludesDefinitionAndUses(t *testing.T) {
	src := "let x = 1; in x + x"
	a, file := newAnalysis(t, src)
	defer a.Close()

	refs, err := a.References(vfs.NewFilePos(file, 14))
	require.NoError(t, err)
	require.Len(t, refs, 3)
}

func TestUnusedRecDiagnosticPointsAtKeyword(t *testing.T) {
	src := "rec { a = 1; b = 2; }"
	a, file := newAnalysis(t, src)
	defer a.Close()

	diags, err := a.Diagnostics(file, 0)
	require.NoError(t, err)
	found := false
	for _, d := range diags {
		if d.Kind == diagnostic.KindUnusedRec {
			found = true
			assert.EqualValues(t, 0, d.Range.Start)
			assert.EqualValues(t, 3, d.Range.End)
		}
	}
	assert.True(t, found)
}

func TestDiagnosticsSortedAndCapped(t *testing.T) {
	src := "let a = b; in let c = d; in a"
	a, file := newAnalysis(t, src)
	defer a.Close()

	diags, err := a.Diagnostics(file, 1)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	// The earliest diagnostic in the file, the undefined `b`, survives the cap.
	assert.Equal(t, diagnostic.KindUndefinedName, diags[0].Kind)
}

func TestCompletionListsVisibleNamesAndBuiltins(t *testing.T) {
	src := "let x = 1; in x"
	a, file := newAnalysis(t, src)
	defer a.Close()

	items, err := a.Completion(vfs.NewFilePos(file, 14))
	require.NoError(t, err)

	names := map[string]CompletionKind{}
	for _, it := range items {
		names[it.Name] = it.Kind
	}
	assert.Equal(t, CompletionBinding, names["x"])
	assert.Equal(t, CompletionBuiltin, names["map"])
}

func TestAttrFieldCompletionOnStaticRecord(t *testing.T) {
	src := "let r = { a = 1; b = 2; }; in r."
	a, file := newAnalysis(t, src)
	defer a.Close()

	items, err := a.Completion(vfs.NewFilePos(file, vfs.Pos(len(src))))
	require.NoError(t, err)

	var names []string
	for _, it := range items {
		assert.Equal(t, CompletionAttrField, it.Kind)
		names = append(names, it.Name)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestHoverOnBuiltin(t *testing.T) {
	src := "let f = map; in f"
	a, file := newAnalysis(t, src)
	defer a.Close()

	res, err := a.Hover(vfs.NewFilePos(file, 9))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Contains(t, res.Markdown, "built-in")
}

func TestSelectionRangeExpandsOutward(t *testing.T) {
	src := "let x = 1; in x + x"
	a, file := newAnalysis(t, src)
	defer a.Close()

	ranges, err := a.SelectionRange(vfs.NewFilePos(file, 15))
	require.NoError(t, err)
	require.NotEmpty(t, ranges)
	for i := 1; i < len(ranges); i++ {
		assert.True(t, ranges[i].Covers(ranges[i-1]) || ranges[i] == ranges[i-1])
	}
}

func TestSyntaxHighlightTagsKeywordsAndIdents(t *testing.T) {
	src := "let x = 1; in x"
	a, file := newAnalysis(t, src)
	defer a.Close()

	ranges, err := a.SyntaxHighlight(file, nil)
	require.NoError(t, err)

	sawKeyword, sawIdent := false, false
	for _, r := range ranges {
		if r.Tag == TagKeyword {
			sawKeyword = true
		}
		if r.Tag == TagIdent {
			sawIdent = true
		}
	}
	assert.True(t, sawKeyword)
	assert.True(t, sawIdent)
}
