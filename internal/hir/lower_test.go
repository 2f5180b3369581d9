package hir

import (
	"testing"

	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/syntax"
	"github.com/attrlang/attrls/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lowerSrc(t *testing.T, src string) *Body {
	t.Helper()
	green, errs := syntax.Parse([]byte(src))
	require.Empty(t, errs)
	return Lower(vfs.FileId(1), green)
}

func TestLowerLiteralAndRef(t *testing.T) {
	b := lowerSrc(t, "x")
	ref, ok := b.Expr(b.Root).(ExprRef)
	require.True(t, ok)
	assert.Equal(t, "x", ref.Name)
}

func TestLowerAttrPathFlattening(t *testing.T) {
	b := lowerSrc(t, "{ a.b = 1; a.c = 2; }")
	set, ok := b.Expr(b.Root).(ExprAttrSet)
	require.True(t, ok)
	require.Len(t, set.Entries, 1)
	assert.Equal(t, "a", set.Entries[0].Name)

	nested, ok := b.Expr(set.Entries[0].Value).(ExprAttrSet)
	require.True(t, ok)
	require.Len(t, nested.Entries, 2)
	names := []string{nested.Entries[0].Name, nested.Entries[1].Name}
	assert.ElementsMatch(t, []string{"b", "c"}, names)
}

func TestLowerDuplicatedKey(t *testing.T) {
	b := lowerSrc(t, "{ a = 1; a = 2; }")
	found := false
	for _, d := range b.Diagnostics {
		if d.Kind == diagnostic.KindDuplicatedKey {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLowerEmptyInherit(t *testing.T) {
	b := lowerSrc(t, "{ inherit; }")
	found := false
	for _, d := range b.Diagnostics {
		if d.Kind == diagnostic.KindEmptyInherit {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLowerEmptyLetIn(t *testing.T) {
	b := lowerSrc(t, "let in 1")
	found := false
	for _, d := range b.Diagnostics {
		if d.Kind == diagnostic.KindEmptyLetIn {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLowerLetAttrsetDeprecated(t *testing.T) {
	b := lowerSrc(t, "let { a = 1; }")
	found := false
	for _, d := range b.Diagnostics {
		if d.Kind == diagnostic.KindLetAttrset {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLowerSelectNested(t *testing.T) {
	b := lowerSrc(t, "a.b.c")
	outer, ok := b.Expr(b.Root).(ExprSelect)
	require.True(t, ok)
	assert.Equal(t, "c", outer.Key.Name)

	inner, ok := b.Expr(outer.Set).(ExprSelect)
	require.True(t, ok)
	assert.Equal(t, "b", inner.Key.Name)

	base, ok := b.Expr(inner.Set).(ExprRef)
	require.True(t, ok)
	assert.Equal(t, "a", base.Name)
}

func TestLowerSelectWithDefault(t *testing.T) {
	b := lowerSrc(t, "a.b or 0")
	sel, ok := b.Expr(b.Root).(ExprSelect)
	require.True(t, ok)
	require.NotNil(t, sel.Default)
	lit, ok := b.Expr(*sel.Default).(ExprLiteral)
	require.True(t, ok)
	assert.Equal(t, "0", lit.Literal.Text)
}

func TestLowerLambdaFormals(t *testing.T) {
	b := lowerSrc(t, "{ a, b ? 1, ... }: a")
	lam, ok := b.Expr(b.Root).(ExprLambda)
	require.True(t, ok)
	require.True(t, lam.Param.IsFormals)
	require.True(t, lam.Param.Ellipsis)
	require.Len(t, lam.Param.Formals, 2)
	assert.Equal(t, "a", lam.Param.Formals[0].Name)
	assert.Equal(t, "b", lam.Param.Formals[1].Name)
	assert.NotNil(t, lam.Param.Formals[1].Default)
}

func TestLowerInheritFrom(t *testing.T) {
	b := lowerSrc(t, "let inherit (a) b c; in b")
	letIn, ok := b.Expr(b.Root).(ExprLetIn)
	require.True(t, ok)
	require.Len(t, letIn.Inherits, 1)
	assert.Equal(t, []string{"b", "c"}, letIn.Inherits[0].Names)
	require.NotNil(t, letIn.Inherits[0].From)
}

func TestLowerUriLiteralDeprecated(t *testing.T) {
	b := lowerSrc(t, "https://example.com/x")
	found := false
	for _, d := range b.Diagnostics {
		if d.Kind == diagnostic.KindUriLiteral {
			found = true
		}
	}
	assert.True(t, found)
}
