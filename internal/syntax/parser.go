package syntax

import (
	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/vfs"
)

// maxNestDepth bounds recursive-descent depth so a pathological input (deep
// parens, a long right-associative operator chain) reports NestTooDeep
// instead of overflowing the Go call stack.
const maxNestDepth = 128

// Parse runs the hand-written recursive-descent parser over src and returns
// the resulting green tree together with every recoverable syntax error
// found along the way. Parse never fails outright: concatenating every
// token's text in the returned tree always reproduces src exactly.
func Parse(src []byte) (*GreenNode, []Error) {
	p := newParser(src)
	p.b.start()
	p.parseExpr()
	if !p.eof() {
		p.errorHere(diagnostic.MultipleRoots)
		for !p.eof() {
			p.bumpAny()
		}
	}
	p.flushTrivia()
	root := p.b.finish(KindSourceFile)
	return root, p.errors
}

type parser struct {
	toks    []rawToken
	offsets []vfs.Pos
	sig     []int
	cur     int
	rawPos  int
	b       *builder
	errors  []Error

	depth           int
	nestErrorEmitted bool
}

func newParser(src []byte) *parser {
	toks := lex(src)
	offsets := make([]vfs.Pos, len(toks)+1)
	var o vfs.Pos
	for i, t := range toks {
		offsets[i] = o
		o += vfs.Pos(len(t.text))
	}
	offsets[len(toks)] = o

	var sig []int
	for i, t := range toks {
		if !t.kind.IsTrivia() {
			sig = append(sig, i)
		}
	}
	return &parser{toks: toks, offsets: offsets, sig: sig, b: newBuilder()}
}

// --- token stream primitives ---

func (p *parser) eof() bool { return p.cur >= len(p.sig) }

func (p *parser) sigKindAt(i int) Kind {
	if i < 0 || i >= len(p.sig) {
		return KindEOF
	}
	return p.toks[p.sig[i]].kind
}

func (p *parser) peekKind() Kind         { return p.sigKindAt(p.cur) }
func (p *parser) peekKindAt(n int) Kind  { return p.sigKindAt(p.cur + n) }
func (p *parser) at(k Kind) bool         { return p.peekKind() == k }

func (p *parser) currentText() string {
	if p.eof() {
		return ""
	}
	return p.toks[p.sig[p.cur]].text
}

func (p *parser) atOrKeyword() bool {
	return p.at(KindIdent) && p.currentText() == "or"
}

func (p *parser) curOffset() vfs.Pos {
	if p.eof() {
		return p.offsets[len(p.toks)]
	}
	return p.offsets[p.sig[p.cur]]
}

// bumpAny consumes every raw token up to and including the next significant
// token (so preceding trivia rides along as children of the current node),
// advancing the significant-token cursor by one.
func (p *parser) bumpAny() {
	end := len(p.toks)
	if !p.eof() {
		end = p.sig[p.cur] + 1
	}
	for i := p.rawPos; i < end; i++ {
		p.b.token(p.toks[i].kind, p.toks[i].text)
	}
	p.rawPos = end
	if !p.eof() {
		p.cur++
	}
}

// flushTrivia attaches any trailing trivia after the last significant token
// (a final comment, trailing newline) to whatever frame is currently open.
func (p *parser) flushTrivia() {
	for i := p.rawPos; i < len(p.toks); i++ {
		p.b.token(p.toks[i].kind, p.toks[i].text)
	}
	p.rawPos = len(p.toks)
}

func (p *parser) errorAt(r vfs.TextRange, kind diagnostic.SyntaxErrorKind) {
	p.errors = append(p.errors, Error{Range: r, Kind: kind})
}

func (p *parser) errorHere(kind diagnostic.SyntaxErrorKind) {
	p.errorAt(vfs.EmptyRange(p.curOffset()), kind)
}

// expect consumes a token of kind k, or records a MissingToken error at the
// current position and leaves the stream untouched.
func (p *parser) expect(k Kind) bool {
	if p.at(k) {
		p.bumpAny()
		return true
	}
	p.errorHere(diagnostic.MissingToken)
	return false
}

func (p *parser) enterRecursion() bool {
	p.depth++
	if p.depth > maxNestDepth {
		if !p.nestErrorEmitted {
			p.errorHere(diagnostic.NestTooDeep)
			p.nestErrorEmitted = true
		}
		return false
	}
	return true
}

func (p *parser) leaveRecursion() { p.depth-- }

// parseAtomFallbackShallow gives up on structured parsing (nesting cap hit,
// or nothing recognizable at all) while still making progress through the
// token stream.
func (p *parser) parseAtomFallbackShallow() *GreenNode {
	p.b.start()
	if !p.eof() {
		p.bumpAny()
	}
	return p.b.finish(KindLiteralExpr)
}

func (p *parser) canStartExpr(k Kind) bool {
	switch k {
	case KindIdent, KindInt, KindFloat, KindString, KindPath, KindUri,
		KindKwTrue, KindKwFalse, KindKwNull,
		KindLParen, KindLBracket, KindLBrace, KindKwRec,
		KindKwLet, KindKwWith, KindKwIf, KindKwAssert,
		KindMinus, KindBang:
		return true
	}
	return false
}

// canStartApplyArg reports whether the next token can begin an application
// argument or list element — a strict atom, never a binary/let/if/with
// construct, matching the source language's rule that those need parens.
func (p *parser) canStartApplyArg() bool {
	switch p.peekKind() {
	case KindIdent, KindInt, KindFloat, KindString, KindPath, KindUri,
		KindKwTrue, KindKwFalse, KindKwNull,
		KindLParen, KindLBracket, KindLBrace, KindKwRec:
		return true
	}
	return false
}

func (p *parser) parseExprOrMissing() *GreenNode {
	if !p.canStartExpr(p.peekKind()) {
		p.errorHere(diagnostic.MissingExpr)
		p.b.start()
		return p.b.finish(KindLiteralExpr)
	}
	return p.parseExpr()
}

// --- top-level expression dispatch ---

func (p *parser) parseExpr() *GreenNode {
	if !p.enterRecursion() {
		defer p.leaveRecursion()
		return p.parseAtomFallbackShallow()
	}
	defer p.leaveRecursion()

	switch {
	case p.at(KindKwLet):
		if p.peekKindAt(1) == KindLBrace {
			return p.parseLetAttrset()
		}
		return p.parseLetIn()
	case p.at(KindKwWith):
		return p.parseWith()
	case p.at(KindKwIf):
		return p.parseIf()
	case p.at(KindKwAssert):
		return p.parseAssert()
	case p.isLambdaStart():
		return p.parseLambda()
	default:
		return p.parseBinary(0)
	}
}

func (p *parser) parseLetIn() *GreenNode {
	p.b.start()
	p.bumpAny() // 'let'
	p.parseBindingsList(KindKwIn)
	if p.at(KindKwIn) {
		p.bumpAny()
	} else {
		p.errorHere(diagnostic.MissingToken)
	}
	p.parseExprOrMissing()
	return p.b.finish(KindLetIn)
}

// parseLetAttrset handles the deprecated `let { ... }` form (flagged
// KindLetAttrset/deprecated by the diagnostic layer, not here).
func (p *parser) parseLetAttrset() *GreenNode {
	p.b.start()
	p.bumpAny() // 'let'
	p.expect(KindLBrace)
	p.parseBindingsList(KindRBrace)
	p.expect(KindRBrace)
	return p.b.finish(KindLetAttrset)
}

func (p *parser) parseWith() *GreenNode {
	p.b.start()
	p.bumpAny() // 'with'
	p.parseExprOrMissing()
	p.expect(KindSemi)
	p.parseExprOrMissing()
	return p.b.finish(KindWithExpr)
}

func (p *parser) parseIf() *GreenNode {
	p.b.start()
	p.bumpAny() // 'if'
	p.parseExprOrMissing()
	if p.at(KindKwThen) {
		p.bumpAny()
	} else {
		p.errorHere(diagnostic.MissingToken)
	}
	p.parseExprOrMissing()
	if p.at(KindKwElse) {
		p.bumpAny()
	} else {
		p.errorHere(diagnostic.MissingToken)
	}
	p.parseExprOrMissing()
	return p.b.finish(KindIfExpr)
}

func (p *parser) parseAssert() *GreenNode {
	p.b.start()
	p.bumpAny() // 'assert'
	p.parseExprOrMissing()
	p.expect(KindSemi)
	p.parseExprOrMissing()
	return p.b.finish(KindAssertExpr)
}

// --- lambdas ---

// matchingBraceSig scans forward from the significant-token index of an
// LBrace and returns the significant-token index of its matching RBrace, or
// -1 if unterminated.
func (p *parser) matchingBraceSig(open int) int {
	depth := 0
	for i := open; i < len(p.sig); i++ {
		switch p.toks[p.sig[i]].kind {
		case KindLBrace:
			depth++
		case KindRBrace:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (p *parser) isLambdaStart() bool {
	switch p.peekKind() {
	case KindIdent:
		next := p.peekKindAt(1)
		return next == KindColon || next == KindAt
	case KindLBrace:
		closeIdx := p.matchingBraceSig(p.cur)
		if closeIdx < 0 {
			return false
		}
		switch p.sigKindAt(closeIdx + 1) {
		case KindColon:
			return true
		case KindAt:
			return p.sigKindAt(closeIdx+2) == KindIdent && p.sigKindAt(closeIdx+3) == KindColon
		}
	}
	return false
}

func (p *parser) parseLambda() *GreenNode {
	p.b.start() // LambdaExpr
	if p.at(KindIdent) && p.peekKindAt(1) == KindColon {
		p.b.start()
		p.bumpAny()
		p.b.finish(KindIdentParam)
	} else {
		p.parseFormalsParam()
	}
	p.expect(KindColon)
	p.parseExprOrMissing()
	return p.b.finish(KindLambdaExpr)
}

func (p *parser) parseFormalsParam() *GreenNode {
	p.b.start() // FormalsParam
	if p.at(KindIdent) && p.peekKindAt(1) == KindAt {
		p.b.start()
		p.bumpAny()
		p.b.finish(KindIdentParam)
		p.bumpAny() // '@'
	}
	p.expect(KindLBrace)
	for !p.at(KindRBrace) && !p.eof() {
		if p.at(KindEllipsis) {
			p.bumpAny()
			break
		}
		p.parseFormal()
		if p.at(KindComma) {
			p.bumpAny()
		} else if !p.at(KindRBrace) && !p.at(KindEllipsis) {
			p.errorHere(diagnostic.MissingToken)
			break
		}
	}
	p.expect(KindRBrace)
	if p.at(KindAt) {
		p.bumpAny()
		if p.at(KindIdent) {
			p.b.start()
			p.bumpAny()
			p.b.finish(KindIdentParam)
		} else {
			p.errorHere(diagnostic.MissingParamIdent)
		}
	}
	return p.b.finish(KindFormalsParam)
}

func (p *parser) parseFormal() *GreenNode {
	p.b.start()
	if p.at(KindIdent) {
		p.bumpAny()
	} else {
		p.errorHere(diagnostic.MissingParamIdent)
	}
	if p.at(KindQuestion) {
		p.bumpAny()
		p.parseExprOrMissing()
	}
	return p.b.finish(KindFormal)
}

// --- operator precedence climbing ---

var binPrec = map[Kind]int{
	KindArrow:      1,
	KindOrOr:       2,
	KindAndAnd:     3,
	KindEqEq:       4,
	KindNotEq:      4,
	KindLt:         5,
	KindLtEq:       5,
	KindGt:         5,
	KindGtEq:       5,
	KindSlashSlash: 6,
	KindPlus:       7,
	KindMinus:      7,
	KindStar:       8,
	KindSlash:      8,
	KindPlusPlus:   9,
}

var rightAssocOps = map[Kind]bool{
	KindArrow:      true,
	KindSlashSlash: true,
	KindPlusPlus:   true,
}

var nonAssocOps = map[Kind]bool{
	KindEqEq: true, KindNotEq: true,
	KindLt: true, KindLtEq: true, KindGt: true, KindGtEq: true,
}

func (p *parser) parseBinary(minPrec int) *GreenNode {
	if !p.enterRecursion() {
		defer p.leaveRecursion()
		return p.parseAtomFallbackShallow()
	}
	defer p.leaveRecursion()

	cp := p.b.checkpoint()
	result := p.parseUnary()
	for {
		k := p.peekKind()
		prec, ok := binPrec[k]
		if !ok || prec < minPrec {
			break
		}
		p.b.startAt(cp)
		p.bumpAny() // operator
		nextMin := prec + 1
		if rightAssocOps[k] {
			nextMin = prec
		}
		p.parseBinary(nextMin)
		result = p.b.finish(KindBinaryExpr)

		if nonAssocOps[k] {
			if np, ok2 := binPrec[p.peekKind()]; ok2 && np == prec && nonAssocOps[p.peekKind()] {
				p.errorHere(diagnostic.MultipleNoAssoc)
			}
		}
	}
	return result
}

func (p *parser) parseUnary() *GreenNode {
	if p.at(KindMinus) || p.at(KindBang) {
		p.b.start()
		p.bumpAny()
		p.parseUnary()
		return p.b.finish(KindUnaryExpr)
	}
	return p.parseApply()
}

func (p *parser) parseApply() *GreenNode {
	cp := p.b.checkpoint()
	result := p.parsePostfixAtom()
	for p.canStartApplyArg() {
		p.b.startAt(cp)
		p.parsePostfixAtom()
		result = p.b.finish(KindApplyExpr)
	}
	if p.at(KindQuestion) {
		p.b.startAt(cp)
		p.bumpAny() // '?'
		p.parseAttrKey()
		for p.at(KindDot) {
			p.bumpAny()
			p.parseAttrKey()
		}
		result = p.b.finish(KindHasAttrExpr)
	}
	return result
}

func (p *parser) parsePostfixAtom() *GreenNode {
	cp := p.b.checkpoint()
	result := p.parseAtom()
	for p.at(KindDot) {
		p.b.startAt(cp)
		p.bumpAny() // '.'
		p.parseAttrKey()
		result = p.b.finish(KindSelectExpr)
	}
	if result != nil && result.Kind_ == KindSelectExpr && p.atOrKeyword() {
		p.b.startAt(cp)
		p.bumpAny() // 'or'
		p.parsePostfixAtom()
		result = p.b.finish(KindSelectExpr)
	}
	return result
}

func (p *parser) parseAtom() *GreenNode {
	switch p.peekKind() {
	case KindPath:
		p.checkPathToken()
		p.b.start()
		p.bumpAny()
		return p.b.finish(KindLiteralExpr)
	case KindInt, KindFloat, KindString, KindUri,
		KindKwTrue, KindKwFalse, KindKwNull:
		p.b.start()
		p.bumpAny()
		return p.b.finish(KindLiteralExpr)
	case KindIdent:
		p.b.start()
		p.bumpAny()
		return p.b.finish(KindRefExpr)
	case KindLParen:
		p.b.start()
		p.bumpAny()
		p.parseExprOrMissing()
		p.expect(KindRParen)
		return p.b.finish(KindParenExpr)
	case KindLBracket:
		return p.parseList()
	case KindLBrace:
		p.b.start()
		p.bumpAny() // '{'
		p.parseBindingsList(KindRBrace)
		p.expect(KindRBrace)
		return p.b.finish(KindAttrSet)
	case KindKwRec:
		p.b.start()
		p.bumpAny() // 'rec'
		p.expect(KindLBrace)
		p.parseBindingsList(KindRBrace)
		p.expect(KindRBrace)
		return p.b.finish(KindAttrSet)
	case KindKwLet, KindKwWith, KindKwIf, KindKwAssert:
		return p.parseExpr()
	}
	if p.isLambdaStart() {
		return p.parseExpr()
	}
	p.errorHere(diagnostic.MissingExpr)
	return p.parseAtomFallbackShallow()
}

// checkPathToken flags the two malformed-path shapes called out in the
// diagnostic table: a trailing "/" and an internal "//" run, both only
// meaningful for path literals (list concatenation also spells "//").
func (p *parser) checkPathToken() {
	text := p.toks[p.sig[p.cur]].text
	start := p.offsets[p.sig[p.cur]]
	if len(text) > 1 && text[len(text)-1] == '/' {
		end := start + vfs.Pos(len(text))
		p.errorAt(vfs.NewTextRange(end-1, end), diagnostic.PathTrailingSlash)
	}
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '/' && text[i+1] == '/' {
			r := vfs.NewTextRange(start+vfs.Pos(i), start+vfs.Pos(i+2))
			p.errorAt(r, diagnostic.PathDuplicatedSlashes)
			break
		}
	}
}

func (p *parser) parseList() *GreenNode {
	p.b.start()
	p.bumpAny() // '['
	for !p.at(KindRBracket) && !p.eof() {
		if !p.canStartApplyArg() {
			p.errorHere(diagnostic.MissingElemExpr)
			break
		}
		p.parsePostfixAtom()
	}
	p.expect(KindRBracket)
	return p.b.finish(KindListExpr)
}

// --- bindings ---

func (p *parser) parseBindingsList(closeKind Kind) {
	for !p.at(closeKind) && !p.eof() {
		if p.at(KindKwInherit) {
			p.parseInherit()
			continue
		}
		if p.canStartAttrKey() {
			p.parseBinding()
			continue
		}
		p.errorHere(diagnostic.MissingBinding)
		p.bumpAny()
	}
}

func (p *parser) canStartAttrKey() bool {
	switch p.peekKind() {
	case KindIdent, KindString, KindDollarBrace:
		return true
	}
	return false
}

func (p *parser) parseBinding() *GreenNode {
	p.b.start() // Binding
	p.parseAttrPath()
	if p.at(KindEq) {
		p.bumpAny()
		p.parseExprOrMissing()
	} else {
		p.errorHere(diagnostic.MissingToken)
	}
	p.expect(KindSemi)
	return p.b.finish(KindBinding)
}

func (p *parser) parseAttrPath() *GreenNode {
	p.b.start() // AttrPath
	p.parseAttrKey()
	for p.at(KindDot) {
		p.bumpAny()
		p.parseAttrKey()
	}
	return p.b.finish(KindAttrPath)
}

func (p *parser) parseAttrKey() *GreenNode {
	if p.at(KindDollarBrace) {
		p.b.start()
		p.bumpAny() // '${'
		p.parseExprOrMissing()
		p.expect(KindRBrace)
		return p.b.finish(KindDynamicAttr)
	}
	p.b.start()
	switch p.peekKind() {
	case KindIdent, KindString:
		p.bumpAny()
	default:
		p.errorHere(diagnostic.MissingAttr)
	}
	return p.b.finish(KindAttrPathValue)
}

func (p *parser) parseInherit() *GreenNode {
	p.b.start()
	p.bumpAny() // 'inherit'
	if p.at(KindLParen) {
		p.bumpAny()
		p.parseExprOrMissing()
		p.expect(KindRParen)
	}
	for p.at(KindIdent) {
		p.b.start()
		p.bumpAny()
		p.b.finish(KindIdentParam)
	}
	p.expect(KindSemi)
	return p.b.finish(KindInherit)
}
