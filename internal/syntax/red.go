package syntax

import "github.com/attrlang/attrls/internal/vfs"

// SyntaxNode is the lazy red overlay over a *GreenNode: it adds an absolute
// text offset and a parent back-pointer, computed on demand from the green
// tree rather than stored in it, so the shared green layer needs no parent
// pointers (SPEC_FULL.md §9).
type SyntaxNode struct {
	green  *GreenNode
	parent *SyntaxNode
	offset vfs.Pos
}

// NewRoot wraps a green tree's root as a parentless red node at offset 0.
func NewRoot(green *GreenNode) *SyntaxNode {
	return &SyntaxNode{green: green, offset: 0}
}

func (n *SyntaxNode) Kind() Kind           { return n.green.Kind_ }
func (n *SyntaxNode) Green() *GreenNode    { return n.green }
func (n *SyntaxNode) Parent() *SyntaxNode  { return n.parent }
func (n *SyntaxNode) Offset() vfs.Pos      { return n.offset }
func (n *SyntaxNode) TextRange() vfs.TextRange {
	return vfs.NewTextRange(n.offset, n.offset+vfs.Pos(n.green.len))
}
func (n *SyntaxNode) Text() string { return n.green.Text() }

// SyntaxElement is either a *SyntaxNode or a *SyntaxToken child.
type SyntaxElement struct {
	Node  *SyntaxNode
	Token *SyntaxToken
}

func (e SyntaxElement) Kind() Kind {
	if e.Node != nil {
		return e.Node.Kind()
	}
	return e.Token.Kind()
}

func (e SyntaxElement) TextRange() vfs.TextRange {
	if e.Node != nil {
		return e.Node.TextRange()
	}
	return e.Token.TextRange()
}

// Children materializes the direct children as red elements, assigning each
// its absolute offset by walking the green children in order.
func (n *SyntaxNode) Children() []SyntaxElement {
	out := make([]SyntaxElement, 0, len(n.green.Children_))
	cur := n.offset
	for _, c := range n.green.Children_ {
		switch v := c.(type) {
		case *GreenNode:
			child := &SyntaxNode{green: v, parent: n, offset: cur}
			out = append(out, SyntaxElement{Node: child})
		case GreenToken:
			tok := &SyntaxToken{green: v, parent: n, offset: cur}
			out = append(out, SyntaxElement{Token: tok})
		}
		cur += vfs.Pos(c.TextLen())
	}
	return out
}

// ChildNodes returns only the node children, skipping tokens.
func (n *SyntaxNode) ChildNodes() []*SyntaxNode {
	var out []*SyntaxNode
	for _, c := range n.Children() {
		if c.Node != nil {
			out = append(out, c.Node)
		}
	}
	return out
}

// FirstChildNode returns the first direct child node of the given kind.
func (n *SyntaxNode) FirstChildNode(kind Kind) *SyntaxNode {
	for _, c := range n.ChildNodes() {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

// ChildNodesOfKind returns every direct child node of the given kind, in
// order.
func (n *SyntaxNode) ChildNodesOfKind(kind Kind) []*SyntaxNode {
	var out []*SyntaxNode
	for _, c := range n.ChildNodes() {
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

// FirstToken returns the first direct child token of the given kind.
func (n *SyntaxNode) FirstToken(kind Kind) *SyntaxToken {
	for _, c := range n.Children() {
		if c.Token != nil && c.Token.Kind() == kind {
			return c.Token
		}
	}
	return nil
}

// Tokens returns every direct child token, including trivia.
func (n *SyntaxNode) Tokens() []*SyntaxToken {
	var out []*SyntaxToken
	for _, c := range n.Children() {
		if c.Token != nil {
			out = append(out, c.Token)
		}
	}
	return out
}

// Ancestors returns n and every strict ancestor, innermost first.
func (n *SyntaxNode) Ancestors() []*SyntaxNode {
	out := []*SyntaxNode{n}
	for p := n.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// TokenAtOffset descends the tree to find the token whose range contains
// pos. When pos sits exactly at a boundary between two tokens, the token
// starting at pos is preferred, except at end-of-file where the last token
// is returned — this matches an editor caret's usual left-to-right bias.
func (n *SyntaxNode) TokenAtOffset(pos vfs.Pos) *SyntaxToken {
	children := n.Children()
	for i, c := range children {
		r := c.TextRange()
		if pos < r.Start {
			continue
		}
		if pos < r.End || (pos == r.End && i == len(children)-1) {
			if c.Token != nil {
				return c.Token
			}
			return c.Node.TokenAtOffset(pos)
		}
	}
	return nil
}

// NodeAtRange returns the smallest descendant node whose range covers r
// (including n itself if no child covers it). Used by selection expansion.
func (n *SyntaxNode) NodeAtRange(r vfs.TextRange) *SyntaxNode {
	for _, c := range n.ChildNodes() {
		cr := c.TextRange()
		if cr.Start <= r.Start && r.End <= cr.End {
			return c.NodeAtRange(r)
		}
	}
	return n
}

// SyntaxToken is the red overlay for a single lexical token.
type SyntaxToken struct {
	green  GreenToken
	parent *SyntaxNode
	offset vfs.Pos
}

func (t *SyntaxToken) Kind() Kind                 { return t.green.Kind_ }
func (t *SyntaxToken) Text() string               { return t.green.Text_ }
func (t *SyntaxToken) Parent() *SyntaxNode         { return t.parent }
func (t *SyntaxToken) Offset() vfs.Pos             { return t.offset }
func (t *SyntaxToken) TextRange() vfs.TextRange {
	return vfs.NewTextRange(t.offset, t.offset+vfs.Pos(len(t.green.Text_)))
}
