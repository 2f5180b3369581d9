package hir

import (
	"github.com/attrlang/attrls/internal/syntax"
	"github.com/attrlang/attrls/internal/vfs"
)

// AstPtr identifies a syntax node by kind and text range rather than by
// pointer, so it survives being looked up against a freshly re-parsed tree
// after an edit (the tree itself is never mutated in place).
type AstPtr struct {
	Kind  syntax.Kind
	Range vfs.TextRange
}

func ptrFor(n *syntax.SyntaxNode) AstPtr {
	return AstPtr{Kind: n.Kind(), Range: n.TextRange()}
}

// Resolve re-finds the syntax node a pointer denotes within a (possibly
// freshly parsed) tree rooted at root, by walking down to the smallest node
// covering the range and checking its kind matches.
func (p AstPtr) Resolve(root *syntax.SyntaxNode) *syntax.SyntaxNode {
	n := root.NodeAtRange(p.Range)
	if n.Kind() == p.Kind && n.TextRange() == p.Range {
		return n
	}
	return nil
}

// SourceMap is the ExprId <-> AstPtr mapping for one file's lowered body,
// used to answer "what AST node is at this offset" (for hover/goto) and
// "what ExprId corresponds to this AST node" (for diagnostics and rename).
// The two directions are not exact inverses of each other; see record.
type SourceMap struct {
	exprToPtr map[ExprId]AstPtr
	ptrToExpr map[AstPtr]ExprId
}

func newSourceMap() *SourceMap {
	return &SourceMap{exprToPtr: make(map[ExprId]AstPtr), ptrToExpr: make(map[AstPtr]ExprId)}
}

func (m *SourceMap) record(id ExprId, n *syntax.SyntaxNode) {
	ptr := ptrFor(n)
	m.exprToPtr[id] = ptr
	// Later records overwrite earlier ones. flattenPending records every
	// nested record of a dotted path (a.b.c = ...) on the same Binding
	// node, so ptrToExpr keeps only the last of those ExprIds; lowerSelect
	// re-records a select that has an `or` default under the outer node,
	// so that ExprId maps to the outer pointer while the inner pointer
	// still maps back to it.
	m.ptrToExpr[ptr] = id
}

func (m *SourceMap) PtrForExpr(id ExprId) (AstPtr, bool) {
	p, ok := m.exprToPtr[id]
	return p, ok
}

func (m *SourceMap) ExprForPtr(p AstPtr) (ExprId, bool) {
	id, ok := m.ptrToExpr[p]
	return id, ok
}

// ExprForNode is a convenience wrapper around ExprForPtr for callers that
// already have a live syntax node in hand.
func (m *SourceMap) ExprForNode(n *syntax.SyntaxNode) (ExprId, bool) {
	return m.ExprForPtr(ptrFor(n))
}
