package ide

import (
	"github.com/attrlang/attrls/internal/hir"
	"github.com/attrlang/attrls/internal/scope"
	"github.com/attrlang/attrls/internal/syntax"
	"github.com/attrlang/attrls/internal/vfs"
)

// CompletionKind classifies one CompletionItem for the editor's icon/sort
// bucket.
type CompletionKind int

const (
	CompletionBinding CompletionKind = iota
	CompletionBuiltin
	CompletionAttrField
)

type CompletionItem struct {
	Name   string
	Kind   CompletionKind
	Detail string
}

// Completion returns candidates for pos: attribute fields of a statically
// known record when pos sits right after a "." select, otherwise every
// name visible in the lexical scope chain plus the built-ins, per
// SPEC_FULL.md §4.6 and §9 Open Question 3.
func (a *Analysis) Completion(pos vfs.FilePos) ([]CompletionItem, error) {
	if err := a.snap.CheckCancelled(); err != nil {
		return nil, err
	}

	body, root, id, hasExpr, err := a.nodeAndExprAtPos(pos)
	if err != nil {
		return nil, err
	}

	if items, handled, err := a.attrFieldCompletion(pos, body, root); err != nil {
		return nil, err
	} else if handled {
		return items, nil
	}

	tree, err := a.scopeTree(pos.File)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var items []CompletionItem

	if hasExpr {
		if scopeID, ok := tree.EnclosingScope(id); ok {
			for _, s := range tree.Chain(scopeID) {
				sc := tree.Scope(s)
				if sc.Kind == scope.ScopeLambdaParams || sc.Kind == scope.ScopeLetGroup || sc.Kind == scope.ScopeRecAttrset {
					for name := range sc.Names {
						if seen[name] {
							continue
						}
						seen[name] = true
						items = append(items, CompletionItem{Name: name, Kind: CompletionBinding})
					}
				}
				// ScopeWith contributes no statically-known names (see scope.Scope's
				// doc comment); a `with` is never a source of completion candidates.
			}
		}
	}

	for _, name := range scope.BuiltinNames() {
		if seen[name] {
			continue
		}
		seen[name] = true
		items = append(items, CompletionItem{Name: name, Kind: CompletionBuiltin, Detail: "built-in"})
	}

	return items, nil
}

// attrFieldCompletion reports whether pos sits directly after the "." of a
// SelectExpr, and if so returns the statically known field names of the
// thing being selected into. handled is true whenever that shape is
// detected, even if the shape's fields could not be determined statically
// (in which case items is nil) — callers must not fall back to lexical
// completion in that case, since "foo." completion is never about names
// visible at foo's own scope.
func (a *Analysis) attrFieldCompletion(pos vfs.FilePos, body *hir.Body, root *syntax.SyntaxNode) ([]CompletionItem, bool, error) {
	if pos.Pos == 0 {
		return nil, false, nil
	}
	content, ok := a.source.FileContent(pos.File)
	if !ok || int(pos.Pos)-1 >= len(content) || content[pos.Pos-1] != '.' {
		return nil, false, nil
	}
	tok := root.TokenAtOffset(pos.Pos - 1)
	if tok == nil || tok.Kind() != syntax.KindDot {
		return nil, false, nil
	}
	selectNode := tok.Parent()
	if selectNode == nil || selectNode.Kind() != syntax.KindSelectExpr {
		return nil, false, nil
	}
	kids := selectNode.ChildNodes()
	if len(kids) == 0 {
		return nil, true, nil
	}
	setID, ok := body.SourceMap.ExprForNode(kids[0])
	if !ok {
		return nil, true, nil
	}
	// A name bound to a value is followed to that value. An inherited name
	// resolves to the construct holding the inherit, which encloses the
	// reference, so such a Def is not followed.
	if _, isRef := body.Expr(setID).(hir.ExprRef); isRef {
		tree, err := a.scopeTree(pos.File)
		if err != nil {
			return nil, false, err
		}
		res := tree.ResolveRef(body, setID)
		defPtr, found := body.SourceMap.PtrForExpr(res.Def)
		if res.Kind != scope.ResDefinition || !found || defPtr.Range.Covers(kids[0].TextRange()) {
			return nil, true, nil
		}
		setID = res.Def
	}
	fields, ok := staticRecordShape(body, setID)
	if !ok {
		return nil, true, nil
	}
	items := make([]CompletionItem, 0, len(fields))
	for _, f := range fields {
		items = append(items, CompletionItem{Name: f, Kind: CompletionAttrField})
	}
	return items, true, nil
}

// staticRecordShape reports the field names of expr when its shape is
// known without evaluation: a literal attribute set directly, or a select
// into one by a non-dynamic key, recursing one level per select. Any other
// expression kind (a function call, an if, a with-scoped name, ...) breaks
// the chain, matching SPEC_FULL.md §9 Open Question 3's decision to keep
// this analysis purely syntactic rather than attempt partial evaluation.
func staticRecordShape(body *hir.Body, expr hir.ExprId) ([]string, bool) {
	switch e := body.Expr(expr).(type) {
	case hir.ExprAttrSet:
		names := make([]string, 0, len(e.Entries))
		for _, entry := range e.Entries {
			names = append(names, entry.Name)
		}
		return names, true
	case hir.ExprSelect:
		if e.Key.IsDynamic() {
			return nil, false
		}
		set, ok := body.Expr(e.Set).(hir.ExprAttrSet)
		if !ok {
			return nil, false
		}
		for _, entry := range set.Entries {
			if entry.Name == e.Key.Name {
				return staticRecordShape(body, entry.Value)
			}
		}
		return nil, false
	default:
		return nil, false
	}
}
