package syntax

// builder assembles a green tree bottom-up from a stack of in-progress
// children slices. checkpoint/startAt let a caller decide, after the fact,
// that some already-emitted siblings actually belong inside a new wrapping
// node — the standard trick for building left-recursive postfix chains
// (select, application, binary expressions) without unbounded lookahead.
type builder struct {
	stack [][]GreenElement
}

func newBuilder() *builder {
	return &builder{stack: [][]GreenElement{nil}}
}

// start opens a new node frame.
func (b *builder) start() {
	b.stack = append(b.stack, nil)
}

// token appends a token to the innermost open frame.
func (b *builder) token(kind Kind, text string) {
	top := len(b.stack) - 1
	b.stack[top] = append(b.stack[top], NewGreenToken(kind, text))
}

// finish closes the innermost frame into a node of the given kind and
// appends it to its parent frame (or returns it as the root if there is no
// parent frame left).
func (b *builder) finish(kind Kind) *GreenNode {
	top := len(b.stack) - 1
	children := b.stack[top]
	b.stack = b.stack[:top]
	node := NewGreenNode(kind, children)
	if len(b.stack) > 0 {
		parent := len(b.stack) - 1
		b.stack[parent] = append(b.stack[parent], node)
	}
	return node
}

// checkpoint marks a position within the current innermost frame.
type checkpoint struct {
	frame int
	pos   int
}

func (b *builder) checkpoint() checkpoint {
	frame := len(b.stack) - 1
	return checkpoint{frame: frame, pos: len(b.stack[frame])}
}

// startAt opens a new frame that adopts every sibling emitted into c's frame
// since c was taken, so a subsequent finish() wraps exactly those siblings.
func (b *builder) startAt(c checkpoint) {
	tail := append([]GreenElement(nil), b.stack[c.frame][c.pos:]...)
	b.stack[c.frame] = b.stack[c.frame][:c.pos]
	b.stack = append(b.stack, tail)
}
