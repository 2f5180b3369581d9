package syntax

import (
	"testing"

	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, src string) *GreenNode {
	t.Helper()
	green, errs := Parse([]byte(src))
	require.Empty(t, errs, "unexpected syntax errors for %q: %v", src, errs)
	return green
}

func TestLosslessRoundTrip(t *testing.T) {
	cases := []string{
		"1",
		"  1 + 2 * 3  ",
		"let x = 1; in x",
		"{ a = 1; b = 2; }",
		"rec { a = 1; b = a + 1; }",
		"with foo; bar",
		"if a then b else c",
		"assert a; b",
		"x: x + 1",
		"{ a, b ? 1, ... }: a + b",
		"a.b.c or 0",
		"[ 1 2 3 ]",
		"# a comment\n1 # trailing\n",
		"/* block */ 1",
		"./relative/path.attrl",
		"let inherit (a) b c; in foo",
	}
	for _, src := range cases {
		green, errs := Parse([]byte(src))
		assert.Equal(t, src, green.Text(), "lossless round-trip for %q", src)
		_ = errs
	}
}

func TestParseLiteralsAndRefs(t *testing.T) {
	green := parseOK(t, "x")
	root := NewRoot(green)
	ref := root.FirstChildNode(KindRefExpr)
	require.NotNil(t, ref)
	assert.Equal(t, "x", ref.Text())
}

func TestParseLetIn(t *testing.T) {
	green := parseOK(t, "let x = 1; y = 2; in x")
	root := NewRoot(green)
	letIn := root.FirstChildNode(KindLetIn)
	require.NotNil(t, letIn)
	bindings := letIn.ChildNodesOfKind(KindBinding)
	assert.Len(t, bindings, 2)
}

func TestParseApplicationIsLeftAssociative(t *testing.T) {
	green := parseOK(t, "f a b c")
	root := NewRoot(green)
	apply := root.FirstChildNode(KindApplyExpr)
	require.NotNil(t, apply)
	// f a b c == ((f a) b) c: the outermost apply's first child is itself
	// an ApplyExpr, not a plain RefExpr.
	children := apply.ChildNodes()
	require.NotEmpty(t, children)
	assert.Equal(t, KindApplyExpr, children[0].Kind())
}

func TestParseSelectWithDefault(t *testing.T) {
	green := parseOK(t, "a.b or 0")
	root := NewRoot(green)
	sel := root.FirstChildNode(KindSelectExpr)
	require.NotNil(t, sel)
}

func TestBinaryPrecedence(t *testing.T) {
	green := parseOK(t, "1 + 2 * 3")
	root := NewRoot(green)
	bin := root.FirstChildNode(KindBinaryExpr)
	require.NotNil(t, bin)
	assert.Equal(t, "+", bin.FirstToken(KindPlus).Text())
}

func TestRightAssociativeUpdate(t *testing.T) {
	green := parseOK(t, "a // b // c")
	root := NewRoot(green)
	bin := root.FirstChildNode(KindBinaryExpr)
	require.NotNil(t, bin)
	// a // (b // c): right child is itself a BinaryExpr.
	children := bin.ChildNodes()
	require.Len(t, children, 2)
	assert.Equal(t, KindBinaryExpr, children[1].Kind())
}

func TestMissingExprProducesError(t *testing.T) {
	_, errs := Parse([]byte("1 +"))
	require.NotEmpty(t, errs)
}

func TestUnterminatedAttrSetProducesError(t *testing.T) {
	_, errs := Parse([]byte("{ a = 1;"))
	require.NotEmpty(t, errs)
}

func TestPathTrailingSlashFlagged(t *testing.T) {
	_, errs := Parse([]byte("./foo/"))
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Kind == diagnostic.PathTrailingSlash {
			found = true
		}
	}
	assert.True(t, found, "expected a PathTrailingSlash error, got %v", errs)
}

func TestDeepNestingReportsNestTooDeep(t *testing.T) {
	src := ""
	for i := 0; i < maxNestDepth*4; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < maxNestDepth*4; i++ {
		src += ")"
	}
	_, errs := Parse([]byte(src))
	require.NotEmpty(t, errs)
}

func TestLambdaForms(t *testing.T) {
	cases := []string{
		"x: x",
		"{ a }: a",
		"{ a, b ? 1 }: a",
		"{ a, ... }: a",
		"name@{ a }: a",
		"{ a }@name: a",
	}
	for _, src := range cases {
		_, errs := Parse([]byte(src))
		assert.Empty(t, errs, "unexpected errors for lambda form %q: %v", src, errs)
	}
}
