package ide

import (
	"fmt"

	"github.com/attrlang/attrls/internal/hir"
	"github.com/attrlang/attrls/internal/scope"
	"github.com/attrlang/attrls/internal/vfs"
)

// HoverResult is the markdown shown for the symbol at a position, plus the
// range it applies to (so an editor can highlight exactly what the hover
// describes).
type HoverResult struct {
	Range    vfs.TextRange
	Markdown string
}

// Hover describes the reference at pos: a built-in's name, a `with`
// fallback's notice that it could not be resolved statically, a local
// binding's kind, or an undefined-name notice. Literals and anything that
// is not an ExprRef have no hover text.
func (a *Analysis) Hover(pos vfs.FilePos) (*HoverResult, error) {
	if err := a.snap.CheckCancelled(); err != nil {
		return nil, err
	}
	body, _, id, ok, err := a.nodeAndExprAtPos(pos)
	if err != nil || !ok {
		return nil, err
	}
	ref, isRef := body.Expr(id).(hir.ExprRef)
	if !isRef {
		return nil, nil
	}
	ptr, ok := body.SourceMap.PtrForExpr(id)
	if !ok {
		return nil, nil
	}
	tree, err := a.scopeTree(pos.File)
	if err != nil {
		return nil, err
	}
	res := tree.ResolveRef(body, id)

	var md string
	switch res.Kind {
	case scope.ResBuiltin:
		md = fmt.Sprintf("**%s**\n\nbuilt-in", ref.Name)
	case scope.ResWithExpr:
		md = fmt.Sprintf("**%s**\n\nresolved through an enclosing `with`; the exact binding is only known at evaluation time", ref.Name)
	case scope.ResDefinition:
		md = fmt.Sprintf("**%s**\n\n%s", ref.Name, definitionKindLabel(body, res.Def))
	default:
		md = fmt.Sprintf("**%s**\n\nundefined name", ref.Name)
	}
	return &HoverResult{Range: ptr.Range, Markdown: md}, nil
}

// definitionKindLabel describes what introduced def from the type of the
// expression def denotes: an ExprLambda is labelled a lambda parameter,
// any other expression a local binding.
func definitionKindLabel(body *hir.Body, def hir.ExprId) string {
	switch body.Expr(def).(type) {
	case hir.ExprLambda:
		return "lambda parameter"
	default:
		return "local binding"
	}
}
