package hir

import (
	"strings"

	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/syntax"
	"github.com/attrlang/attrls/internal/vfs"
)

// Body is one file's fully lowered expression arena plus the diagnostics
// produced while lowering it and the AstPtr <-> ExprId source map.
type Body struct {
	Arena     []Expr
	SourceMap *SourceMap
	Root      ExprId
	Diagnostics []diagnostic.Diagnostic
}

func (b *Body) Expr(id ExprId) Expr { return b.Arena[id] }

// Lower parses green's expression tree into a Body. file is only used to
// stamp related-note ranges with the right FileId; it never affects
// lowering decisions.
func Lower(file vfs.FileId, green *syntax.GreenNode) *Body {
	root := syntax.NewRoot(green)
	l := &lowerer{file: file, sm: newSourceMap()}

	exprNode := firstExprChild(root)
	var rootID ExprId
	if exprNode != nil {
		rootID = l.lowerExpr(exprNode)
	} else {
		rootID = l.push(root, ExprMissing{})
	}
	return &Body{Arena: l.arena, SourceMap: l.sm, Root: rootID, Diagnostics: l.diags}
}

func firstExprChild(root *syntax.SyntaxNode) *syntax.SyntaxNode {
	kids := root.ChildNodes()
	if len(kids) == 0 {
		return nil
	}
	return kids[0]
}

type lowerer struct {
	file  vfs.FileId
	arena []Expr
	sm    *SourceMap
	diags []diagnostic.Diagnostic
}

func (l *lowerer) push(n *syntax.SyntaxNode, e Expr) ExprId {
	id := ExprId(len(l.arena))
	l.arena = append(l.arena, e)
	l.sm.record(id, n)
	return id
}

func (l *lowerer) addDiag(n *syntax.SyntaxNode, kind diagnostic.Kind) {
	l.diags = append(l.diags, diagnostic.New(n.TextRange(), kind))
}

func (l *lowerer) addDiagWithNote(n *syntax.SyntaxNode, kind diagnostic.Kind, primary *syntax.SyntaxNode, note string) {
	d := diagnostic.New(n.TextRange(), kind).WithNote(l.file, primary.TextRange(), note)
	l.diags = append(l.diags, d)
}

func firstSignificantToken(n *syntax.SyntaxNode) *syntax.SyntaxToken {
	for _, t := range n.Tokens() {
		if !t.Kind().IsTrivia() {
			return t
		}
	}
	return nil
}

// --- dispatch ---

func (l *lowerer) lowerExpr(n *syntax.SyntaxNode) ExprId {
	switch n.Kind() {
	case syntax.KindParenExpr:
		kids := n.ChildNodes()
		if len(kids) == 0 {
			return l.push(n, ExprMissing{})
		}
		return l.lowerExpr(kids[0])
	case syntax.KindLiteralExpr:
		return l.lowerLiteral(n)
	case syntax.KindRefExpr:
		name := ""
		if t := n.FirstToken(syntax.KindIdent); t != nil {
			name = t.Text()
		}
		return l.push(n, ExprRef{Name: name})
	case syntax.KindListExpr:
		var elems []ExprId
		for _, k := range n.ChildNodes() {
			elems = append(elems, l.lowerExpr(k))
		}
		return l.push(n, ExprList{Elements: elems})
	case syntax.KindAttrSet:
		rec := n.FirstToken(syntax.KindKwRec) != nil
		entries, dyn, inh := l.collectBindings(n.ChildNodes(), false)
		return l.push(n, ExprAttrSet{Rec: rec, Entries: entries, Dynamic: dyn, Inherits: inh})
	case syntax.KindLetIn:
		return l.lowerLetIn(n)
	case syntax.KindLetAttrset:
		l.addDiag(n, diagnostic.KindLetAttrset)
		entries, dyn, inh := l.collectBindings(n.ChildNodes(), true)
		return l.push(n, ExprAttrSet{Entries: entries, Dynamic: dyn, Inherits: inh})
	case syntax.KindWithExpr:
		kids := n.ChildNodes()
		if len(kids) < 2 {
			return l.push(n, ExprMissing{})
		}
		return l.push(n, ExprWith{Namespace: l.lowerExpr(kids[0]), Body: l.lowerExpr(kids[1])})
	case syntax.KindIfExpr:
		kids := n.ChildNodes()
		if len(kids) < 3 {
			return l.push(n, ExprMissing{})
		}
		return l.push(n, ExprIf{Cond: l.lowerExpr(kids[0]), Then: l.lowerExpr(kids[1]), Else: l.lowerExpr(kids[2])})
	case syntax.KindAssertExpr:
		kids := n.ChildNodes()
		if len(kids) < 2 {
			return l.push(n, ExprMissing{})
		}
		return l.push(n, ExprAssert{Cond: l.lowerExpr(kids[0]), Body: l.lowerExpr(kids[1])})
	case syntax.KindUnaryExpr:
		kids := n.ChildNodes()
		if len(kids) < 1 {
			return l.push(n, ExprMissing{})
		}
		op := UnaryNeg
		if n.FirstToken(syntax.KindBang) != nil {
			op = UnaryNot
		}
		return l.push(n, ExprUnary{Op: op, Operand: l.lowerExpr(kids[0])})
	case syntax.KindBinaryExpr:
		kids := n.ChildNodes()
		if len(kids) < 2 {
			return l.push(n, ExprMissing{})
		}
		return l.push(n, ExprBinary{Op: binaryOpOf(n), LHS: l.lowerExpr(kids[0]), RHS: l.lowerExpr(kids[1])})
	case syntax.KindApplyExpr:
		kids := n.ChildNodes()
		if len(kids) < 2 {
			return l.push(n, ExprMissing{})
		}
		return l.push(n, ExprApply{Func: l.lowerExpr(kids[0]), Arg: l.lowerExpr(kids[1])})
	case syntax.KindSelectExpr:
		return l.lowerSelect(n)
	case syntax.KindHasAttrExpr:
		return l.lowerHasAttr(n)
	case syntax.KindLambdaExpr:
		return l.lowerLambda(n)
	default:
		return l.push(n, ExprMissing{})
	}
}

func (l *lowerer) lowerLetIn(n *syntax.SyntaxNode) ExprId {
	kids := n.ChildNodes()
	if len(kids) == 0 {
		l.addDiag(n, diagnostic.KindEmptyLetIn)
		return l.push(n, ExprMissing{})
	}
	bindingNodes := kids[:len(kids)-1]
	bodyNode := kids[len(kids)-1]
	if len(bindingNodes) == 0 {
		l.addDiag(n, diagnostic.KindEmptyLetIn)
	}
	entries, dyn, inh := l.collectBindings(bindingNodes, true)
	bodyID := l.lowerExpr(bodyNode)
	return l.push(n, ExprLetIn{Entries: entries, Dynamic: dyn, Inherits: inh, Body: bodyID})
}

func (l *lowerer) lowerLiteral(n *syntax.SyntaxNode) ExprId {
	tok := firstSignificantToken(n)
	if tok == nil {
		return l.push(n, ExprMissing{})
	}
	var lit Literal
	switch tok.Kind() {
	case syntax.KindInt:
		lit = Literal{Kind: LiteralInt, Text: tok.Text()}
	case syntax.KindFloat:
		lit = Literal{Kind: LiteralFloat, Text: tok.Text()}
	case syntax.KindString:
		lit = Literal{Kind: LiteralString, Text: tok.Text()}
	case syntax.KindPath:
		lit = Literal{Kind: LiteralPath, Text: tok.Text()}
	case syntax.KindUri:
		lit = Literal{Kind: LiteralURI, Text: tok.Text()}
		l.addDiag(n, diagnostic.KindUriLiteral)
	case syntax.KindKwTrue, syntax.KindKwFalse:
		lit = Literal{Kind: LiteralBool, Text: tok.Text()}
	case syntax.KindKwNull:
		lit = Literal{Kind: LiteralNull, Text: tok.Text()}
	}
	return l.push(n, ExprLiteral{Literal: lit})
}

var binOpKinds = map[syntax.Kind]BinaryOp{
	syntax.KindPlus:       BinAdd,
	syntax.KindMinus:      BinSub,
	syntax.KindStar:       BinMul,
	syntax.KindSlash:      BinDiv,
	syntax.KindPlusPlus:   BinConcat,
	syntax.KindSlashSlash: BinUpdate,
	syntax.KindEqEq:       BinEq,
	syntax.KindNotEq:      BinNotEq,
	syntax.KindLt:         BinLt,
	syntax.KindLtEq:       BinLtEq,
	syntax.KindGt:         BinGt,
	syntax.KindGtEq:       BinGtEq,
	syntax.KindAndAnd:     BinAnd,
	syntax.KindOrOr:       BinOr,
	syntax.KindArrow:      BinImplies,
}

func binaryOpOf(n *syntax.SyntaxNode) BinaryOp {
	for _, t := range n.Tokens() {
		if op, ok := binOpKinds[t.Kind()]; ok {
			return op
		}
	}
	return BinAdd
}

// --- select / has-attr ---

func selectIsDefault(n *syntax.SyntaxNode) bool {
	for _, t := range n.Tokens() {
		if t.Kind() == syntax.KindIdent && t.Text() == "or" {
			return true
		}
		if t.Kind() == syntax.KindDot {
			return false
		}
	}
	return false
}

func (l *lowerer) lowerSelect(n *syntax.SyntaxNode) ExprId {
	kids := n.ChildNodes()
	if len(kids) < 2 {
		return l.push(n, ExprMissing{})
	}
	if selectIsDefault(n) {
		innerID := l.lowerExpr(kids[0])
		defID := l.lowerExpr(kids[1])
		if sel, ok := l.arena[innerID].(ExprSelect); ok {
			sel.Default = &defID
			l.arena[innerID] = sel
			l.sm.record(innerID, n)
			return innerID
		}
		return innerID
	}
	key := l.lowerAttrKeyNode(kids[1])
	setID := l.lowerExpr(kids[0])
	return l.push(n, ExprSelect{Set: setID, Key: key})
}

func (l *lowerer) lowerHasAttr(n *syntax.SyntaxNode) ExprId {
	kids := n.ChildNodes()
	if len(kids) == 0 {
		return l.push(n, ExprMissing{})
	}
	setID := l.lowerExpr(kids[0])
	var path []PathPart
	for _, k := range kids[1:] {
		path = append(path, l.lowerAttrKeyNode(k))
	}
	return l.push(n, ExprHasAttr{Set: setID, Path: path})
}

func (l *lowerer) lowerAttrKeyNode(n *syntax.SyntaxNode) PathPart {
	switch n.Kind() {
	case syntax.KindDynamicAttr:
		inner := n.ChildNodes()
		if len(inner) == 0 {
			return PathPart{}
		}
		id := l.lowerExpr(inner[0])
		return PathPart{Dynamic: &id}
	case syntax.KindAttrPathValue:
		if t := n.FirstToken(syntax.KindIdent); t != nil {
			return PathPart{Name: t.Text()}
		}
		if t := n.FirstToken(syntax.KindString); t != nil {
			return PathPart{Name: unquoteString(t.Text())}
		}
	}
	return PathPart{}
}

func unquoteString(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	inner := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte(inner[i])
			}
			continue
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

// --- lambdas ---

func (l *lowerer) lowerLambda(n *syntax.SyntaxNode) ExprId {
	kids := n.ChildNodes()
	if len(kids) < 2 {
		return l.push(n, ExprMissing{})
	}
	param := l.lowerParam(kids[0])
	bodyID := l.lowerExpr(kids[1])
	return l.push(n, ExprLambda{Param: param, Body: bodyID})
}

func (l *lowerer) lowerParam(n *syntax.SyntaxNode) Param {
	switch n.Kind() {
	case syntax.KindIdentParam:
		name := ""
		if t := n.FirstToken(syntax.KindIdent); t != nil {
			name = t.Text()
		}
		return Param{Name: name}
	case syntax.KindFormalsParam:
		ellipsis := n.FirstToken(syntax.KindEllipsis) != nil
		identParams := n.ChildNodesOfKind(syntax.KindIdentParam)
		formalNodes := n.ChildNodesOfKind(syntax.KindFormal)
		var formals []Formal
		for _, f := range formalNodes {
			fn := ""
			if t := f.FirstToken(syntax.KindIdent); t != nil {
				fn = t.Text()
			}
			var def *ExprId
			if defKids := f.ChildNodes(); len(defKids) > 0 {
				id := l.lowerExpr(defKids[0])
				def = &id
			}
			formals = append(formals, Formal{Name: fn, Default: def})
		}
		bindName := ""
		if len(identParams) > 0 {
			if t := identParams[0].FirstToken(syntax.KindIdent); t != nil {
				bindName = t.Text()
			}
		}
		return Param{IsFormals: true, Formals: formals, Ellipsis: ellipsis, BindName: bindName}
	}
	return Param{}
}

// --- inherit ---

func (l *lowerer) lowerInherit(n *syntax.SyntaxNode) InheritEntry {
	kids := n.ChildNodes()
	start := 0
	var from *ExprId
	if n.FirstToken(syntax.KindLParen) != nil && len(kids) > 0 {
		id := l.lowerExpr(kids[0])
		from = &id
		start = 1
	}
	var names []string
	for _, k := range kids[start:] {
		if t := k.FirstToken(syntax.KindIdent); t != nil {
			names = append(names, t.Text())
		}
	}
	if len(names) == 0 {
		l.addDiag(n, diagnostic.KindEmptyInherit)
	}
	return InheritEntry{From: from, Names: names}
}
