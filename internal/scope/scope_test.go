package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/hir"
	"github.com/attrlang/attrls/internal/syntax"
	"github.com/attrlang/attrls/internal/vfs"
)

func lowerSrc(t *testing.T, src string) *hir.Body {
	t.Helper()
	green, errs := syntax.Parse([]byte(src))
	require.Empty(t, errs)
	return hir.Lower(vfs.FileId(1), green)
}

func findRefByName(t *testing.T, body *hir.Body, name string) hir.ExprId {
	t.Helper()
	for id, e := range body.Arena {
		if ref, ok := e.(hir.ExprRef); ok && ref.Name == name {
			return hir.ExprId(id)
		}
	}
	t.Fatalf("no ExprRef named %q", name)
	return 0
}

func TestResolveLocalBinding(t *testing.T) {
	body := lowerSrc(t, "let x = 1; in x")
	tree := Build(body)
	ref := findRefByName(t, body, "x")
	res := tree.ResolveRef(body, ref)
	assert.Equal(t, ResDefinition, res.Kind)
}

func TestResolveWithFallback(t *testing.T) {
	body := lowerSrc(t, "with { x = 1; }; x + y")
	tree := Build(body)

	xRef := findRefByName(t, body, "x")
	resX := tree.ResolveRef(body, xRef)
	assert.Equal(t, ResWithExpr, resX.Kind)

	yRef := findRefByName(t, body, "y")
	resY := tree.ResolveRef(body, yRef)
	assert.Equal(t, ResWithExpr, resY.Kind)

	diags := Diagnostics(tree, body)
	for _, d := range diags {
		assert.NotEqual(t, diagnostic.KindUnusedWith, d.Kind, "with is used by both x and y")
	}
}

func TestStaticScopeShadowsWith(t *testing.T) {
	body := lowerSrc(t, "with { x = 1; }; let x = 2; in x")
	tree := Build(body)
	ref := findRefByName(t, body, "x")
	res := tree.ResolveRef(body, ref)
	assert.Equal(t, ResDefinition, res.Kind, "the let-bound x must shadow the with")
}

func TestBuiltinResolution(t *testing.T) {
	body := lowerSrc(t, "let f = map; in f")
	tree := Build(body)
	ref := findRefByName(t, body, "map")
	res := tree.ResolveRef(body, ref)
	assert.Equal(t, ResBuiltin, res.Kind)
}

func TestUndefinedName(t *testing.T) {
	body := lowerSrc(t, "undefinedThing")
	tree := Build(body)
	diags := Diagnostics(tree, body)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.KindUndefinedName, diags[0].Kind)
}

func TestUnusedBinding(t *testing.T) {
	body := lowerSrc(t, "let x = 1; y = 2; in y")
	tree := Build(body)
	diags := Diagnostics(tree, body)
	found := false
	for _, d := range diags {
		if d.Kind == diagnostic.KindUnusedBinding {
			found = true
		}
	}
	assert.True(t, found, "x is never referenced")
}

func TestUnusedRec(t *testing.T) {
	body := lowerSrc(t, "rec { a = 1; b = 2; }")
	tree := Build(body)
	diags := Diagnostics(tree, body)
	found := false
	for _, d := range diags {
		if d.Kind == diagnostic.KindUnusedRec {
			found = true
		}
	}
	assert.True(t, found, "no entry references another")
}

func TestRecSelfReferenceIsNotUnusedRec(t *testing.T) {
	body := lowerSrc(t, "rec { a = 1; b = a; }")
	tree := Build(body)
	diags := Diagnostics(tree, body)
	for _, d := range diags {
		assert.NotEqual(t, diagnostic.KindUnusedRec, d.Kind)
	}
}
