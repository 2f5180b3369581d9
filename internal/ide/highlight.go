package ide

import (
	"github.com/attrlang/attrls/internal/hir"
	"github.com/attrlang/attrls/internal/scope"
	"github.com/attrlang/attrls/internal/syntax"
	"github.com/attrlang/attrls/internal/vfs"
)

// HighlightTag is the broad lexical class of one highlighted range.
type HighlightTag int

const (
	TagKeyword HighlightTag = iota
	TagIdent
	TagLiteral
	TagString
	TagPath
	TagUri
	TagComment
	TagPunctuation
)

// HighlightModifier is a bitmask of refinements layered on top of a Tag,
// mirroring LSP semantic-token modifiers.
type HighlightModifier uint8

const (
	ModDefinition HighlightModifier = 1 << iota
	ModBuiltin
	ModWithResolved
	ModUnresolved
	ModEscape
)

type HighlightRange struct {
	Range     vfs.TextRange
	Tag       HighlightTag
	Modifiers HighlightModifier
}

// SyntaxHighlight classifies every non-whitespace token of file, optionally
// restricted to the tokens intersecting rng (nil means the whole file).
func (a *Analysis) SyntaxHighlight(file vfs.FileId, rng *vfs.TextRange) ([]HighlightRange, error) {
	if err := a.snap.CheckCancelled(); err != nil {
		return nil, err
	}
	pr, err := a.parse(file)
	if err != nil {
		return nil, err
	}
	body, err := a.lower(file)
	if err != nil {
		return nil, err
	}
	tree, err := a.scopeTree(file)
	if err != nil {
		return nil, err
	}

	root := syntax.NewRoot(pr.Green)
	var toks []*syntax.SyntaxToken
	collectTokens(root, &toks)

	out := make([]HighlightRange, 0, len(toks))
	for _, tok := range toks {
		if tok.Kind() == syntax.KindWhitespace {
			continue
		}
		tr := tok.TextRange()
		if rng != nil && !rng.Intersects(tr) && tr != *rng {
			continue
		}
		tag, mod := classifyToken(tok, body, tree)
		out = append(out, HighlightRange{Range: tr, Tag: tag, Modifiers: mod})
	}
	return out, nil
}

// collectTokens walks n's subtree depth-first, appending every token
// (trivia included; SyntaxHighlight filters whitespace itself so callers
// that want raw trivia — e.g. a future "format" command — can reuse this).
func collectTokens(n *syntax.SyntaxNode, out *[]*syntax.SyntaxToken) {
	for _, c := range n.Children() {
		if c.Token != nil {
			*out = append(*out, c.Token)
			continue
		}
		collectTokens(c.Node, out)
	}
}

func isKeywordKind(k syntax.Kind) bool {
	return k >= syntax.KindKwLet && k <= syntax.KindKwNull
}

func classifyToken(tok *syntax.SyntaxToken, body *hir.Body, tree *scope.ScopeTree) (HighlightTag, HighlightModifier) {
	k := tok.Kind()
	switch {
	case k == syntax.KindComment:
		return TagComment, 0
	case k == syntax.KindKwTrue, k == syntax.KindKwFalse, k == syntax.KindKwNull:
		return TagLiteral, 0
	case isKeywordKind(k):
		return TagKeyword, 0
	case k == syntax.KindInt, k == syntax.KindFloat:
		return TagLiteral, 0
	case k == syntax.KindString, k == syntax.KindStringPart:
		return TagString, 0
	case k == syntax.KindStringEscape:
		return TagString, ModEscape
	case k == syntax.KindPath:
		return TagPath, 0
	case k == syntax.KindUri:
		return TagUri, 0
	case k == syntax.KindIdent:
		return classifyIdent(tok, body, tree)
	default:
		return TagPunctuation, 0
	}
}

// classifyIdent inspects the parent node of an identifier token to decide
// whether it is a name's defining occurrence or a reference, and for
// references consults the resolved scope to flag built-ins, with-resolved
// names, and unresolved ones distinctly.
func classifyIdent(tok *syntax.SyntaxToken, body *hir.Body, tree *scope.ScopeTree) (HighlightTag, HighlightModifier) {
	parent := tok.Parent()
	if parent == nil {
		return TagIdent, 0
	}
	switch parent.Kind() {
	case syntax.KindRefExpr:
		id, ok := body.SourceMap.ExprForNode(parent)
		if !ok {
			return TagIdent, 0
		}
		res := tree.ResolveRef(body, id)
		switch res.Kind {
		case scope.ResBuiltin:
			return TagIdent, ModBuiltin
		case scope.ResWithExpr:
			return TagIdent, ModWithResolved
		case scope.ResUndefined:
			return TagIdent, ModUnresolved
		default:
			return TagIdent, 0
		}
	case syntax.KindAttrPathValue, syntax.KindIdentParam, syntax.KindFormal:
		return TagIdent, ModDefinition
	default:
		return TagIdent, 0
	}
}
