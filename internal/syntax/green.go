package syntax

import "strings"

// GreenElement is either a *GreenNode or a GreenToken: the structurally
// shared, immutable building block of the concrete syntax tree. Green
// elements carry no absolute position — only their own length and that of
// their descendants — so identical subtrees can be shared freely.
type GreenElement interface {
	ElementKind() Kind
	TextLen() uint32
	text(*strings.Builder)
}

// GreenToken is a single lexical token: its kind and exact source text.
// Every byte of the input appears in exactly one GreenToken (including
// whitespace and comments), which is what makes the tree lossless.
type GreenToken struct {
	Kind_ Kind
	Text_ string
}

func NewGreenToken(kind Kind, text string) GreenToken {
	return GreenToken{Kind_: kind, Text_: text}
}

func (t GreenToken) ElementKind() Kind   { return t.Kind_ }
func (t GreenToken) TextLen() uint32     { return uint32(len(t.Text_)) }
func (t GreenToken) text(b *strings.Builder) { b.WriteString(t.Text_) }

// GreenNode is an interior node: a kind and an ordered list of children
// (which may themselves be nodes or tokens). Length is precomputed at
// construction so TextLen is O(1).
type GreenNode struct {
	Kind_     Kind
	Children_ []GreenElement
	len       uint32
}

// NewGreenNode builds a node and caches its total text length.
func NewGreenNode(kind Kind, children []GreenElement) *GreenNode {
	var total uint32
	for _, c := range children {
		total += c.TextLen()
	}
	return &GreenNode{Kind_: kind, Children_: children, len: total}
}

func (n *GreenNode) ElementKind() Kind { return n.Kind_ }
func (n *GreenNode) TextLen() uint32   { return n.len }
func (n *GreenNode) text(b *strings.Builder) {
	for _, c := range n.Children_ {
		c.text(b)
	}
}

// Text reconstructs the node's full source text by concatenating every
// descendant token — the lossless round-trip the parser guarantees.
func (n *GreenNode) Text() string {
	var b strings.Builder
	b.Grow(int(n.len))
	n.text(&b)
	return b.String()
}
