// Package syntax implements the lossless concrete syntax tree: a
// hand-written recursive-descent lexer and parser producing a persistent
// red/green tree (SPEC_FULL.md §4.3), plus the recoverable syntax errors it
// collects along the way.
package syntax

// Kind identifies the grammatical role of a node or the lexical class of a
// token in the concrete syntax tree. Token kinds and node kinds share one
// enum so a GreenElement can carry either uniformly.
type Kind uint16

const (
	// Special.
	KindTombstone Kind = iota
	KindError
	KindEOF

	// Trivia tokens — never skipped, always attached to the tree so the
	// lossless invariant (text_of(tree) == input) holds.
	KindWhitespace
	KindComment

	// Literal tokens.
	KindInt
	KindFloat
	KindIdent
	KindString    // a whole single/double-quoted string token's delimiters
	KindStringPart // literal text content inside a string
	KindStringEscape
	KindPath
	KindUri

	// Punctuation / operator tokens.
	KindLParen
	KindRParen
	KindLBrace
	KindRBrace
	KindLBracket
	KindRBracket
	KindDot
	KindComma
	KindColon
	KindSemi
	KindEq
	KindQuestion
	KindAt
	KindDollarBrace // "${" introducing a dynamic attribute or interpolation
	KindEllipsis    // "..."
	KindBang     // "!"
	KindPlus
	KindMinus
	KindStar
	KindSlash
	KindSlashSlash // "//"
	KindPlusPlus   // "++"
	KindEqEq
	KindNotEq
	KindLt
	KindLtEq
	KindGt
	KindGtEq
	KindAndAnd
	KindOrOr
	KindArrow // "->"
	KindOr    // the keyword-like `or` used in attrpath-default select

	// Keywords.
	KindKwLet
	KindKwIn
	KindKwWith
	KindKwRec
	KindKwInherit
	KindKwIf
	KindKwThen
	KindKwElse
	KindKwAssert
	KindKwTrue
	KindKwFalse
	KindKwNull

	// Node kinds (composite, non-token).
	KindSourceFile
	KindParenExpr
	KindLiteralExpr
	KindRefExpr
	KindListExpr
	KindAttrSet
	KindLetIn
	KindLetAttrset // deprecated `let { ... }`
	KindWithExpr
	KindIfExpr
	KindAssertExpr
	KindUnaryExpr
	KindBinaryExpr
	KindApplyExpr
	KindSelectExpr
	KindHasAttrExpr
	KindLambdaExpr
	KindIdentParam
	KindFormalsParam
	KindFormal
	KindBinding
	KindInherit
	KindAttrPath
	KindAttrPathValue // static-or-dynamic key inside an AttrPath
	KindDynamicAttr
	KindStringInterp // "${expr}" fragment inside a string/path/uri
)

// IsTrivia reports whether the token kind should never affect grammar
// decisions but must still round-trip losslessly.
func (k Kind) IsTrivia() bool {
	return k == KindWhitespace || k == KindComment
}

// IsToken reports whether k is a lexical token kind rather than a composite
// node kind.
func (k Kind) IsToken() bool {
	return k <= KindKwNull
}
