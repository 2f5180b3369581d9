// Package ide implements the feature services (SPEC_FULL.md §4.6): every
// operation the outer LSP glue exposes to an editor is a pure function of an
// Analysis snapshot, grounded on the teacher's internal/graph query surface
// generalized from "read the dependency graph" to "read parsed syntax, HIR,
// and resolved scopes at a pinned revision."
package ide

import (
	"fmt"
	"sort"

	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/hir"
	"github.com/attrlang/attrls/internal/querydb"
	"github.com/attrlang/attrls/internal/scope"
	"github.com/attrlang/attrls/internal/sourcedb"
	"github.com/attrlang/attrls/internal/syntax"
	"github.com/attrlang/attrls/internal/vfs"
)

// DefaultMaxDiagnostics bounds how many diagnostics Diagnostics returns when
// the caller passes max <= 0, per SPEC_FULL.md §4.6's "a capped, sorted
// list" contract.
const DefaultMaxDiagnostics = 128

// ParseResult memoizes one file's parse: the green tree plus its
// recoverable syntax errors.
type ParseResult struct {
	Green  *syntax.GreenNode
	Errors []syntax.Error
}

// Caches holds the per-file querydb.Table memo tables shared by every
// Analysis built against the same Host — parse, lower, and scope are each
// demand-computed and invalidated independently, so an edit to one file
// never forces recomputation of another's scope tree.
type Caches struct {
	parse *querydb.Table[vfs.FileId, *ParseResult]
	lower *querydb.Table[vfs.FileId, *hir.Body]
	scope *querydb.Table[vfs.FileId, *scope.ScopeTree]
}

// cacheSize bounds each per-file memo table; a workspace bigger than this
// just recomputes its coldest files more often rather than growing without
// bound.
const cacheSize = 512

func NewCaches() *Caches {
	return &Caches{
		parse: querydb.NewTable[vfs.FileId, *ParseResult](cacheSize, querydb.DurabilityMedium),
		lower: querydb.NewTable[vfs.FileId, *hir.Body](cacheSize, querydb.DurabilityMedium),
		scope: querydb.NewTable[vfs.FileId, *scope.ScopeTree](cacheSize, querydb.DurabilityMedium),
	}
}

// Invalidate drops every memo entry for file, called by Host.ApplyChange for
// each FileId the Source DB reports as touched.
func (c *Caches) Invalidate(file vfs.FileId) {
	c.parse.Invalidate(file)
	c.lower.Invalidate(file)
	c.scope.Invalidate(file)
}

// Analysis is a pinned, read-only view of the world: a querydb.Snapshot, the
// Source DB it was taken against, and the shared Caches. Every feature
// operation below is a method on Analysis and every one of them is safe to
// run concurrently with other Analysis values pinned to other snapshots.
type Analysis struct {
	snap   *querydb.Snapshot
	source *sourcedb.Database
	caches *Caches
}

func NewAnalysis(snap *querydb.Snapshot, source *sourcedb.Database, caches *Caches) *Analysis {
	return &Analysis{snap: snap, source: source, caches: caches}
}

// Close releases the pinned snapshot. Callers must call this exactly once
// per Analysis or a writer blocked in Host.ApplyChange never proceeds.
func (a *Analysis) Close() { a.snap.Close() }

func (a *Analysis) parse(file vfs.FileId) (*ParseResult, error) {
	return a.caches.parse.Get(a.snap, file, func() (*ParseResult, error) {
		content, ok := a.source.FileContent(file)
		if !ok {
			return nil, fmt.Errorf("ide: unknown file %s", file)
		}
		green, errs := syntax.Parse(content)
		return &ParseResult{Green: green, Errors: errs}, nil
	})
}

func (a *Analysis) lower(file vfs.FileId) (*hir.Body, error) {
	return a.caches.lower.Get(a.snap, file, func() (*hir.Body, error) {
		pr, err := a.parse(file)
		if err != nil {
			return nil, err
		}
		return hir.Lower(file, pr.Green), nil
	})
}

func (a *Analysis) scopeTree(file vfs.FileId) (*scope.ScopeTree, error) {
	return a.caches.scope.Get(a.snap, file, func() (*scope.ScopeTree, error) {
		body, err := a.lower(file)
		if err != nil {
			return nil, err
		}
		return scope.Build(body), nil
	})
}

// nodeAndExprAtPos returns the lowered body, the parsed tree's root, and the
// innermost hir.ExprId whose source-mapped node covers pos, walking up from
// the token at pos until the source map recognizes an ancestor. ok is false
// when pos sits somewhere no Expr was ever pushed for (e.g. purely
// punctuation, or a gap left by a parse error). A position on a binding's
// attribute path yields the ExprId of that binding's value instead, since
// that is the Def its references resolve to.
func (a *Analysis) nodeAndExprAtPos(pos vfs.FilePos) (*hir.Body, *syntax.SyntaxNode, hir.ExprId, bool, error) {
	pr, err := a.parse(pos.File)
	if err != nil {
		return nil, nil, 0, false, err
	}
	body, err := a.lower(pos.File)
	if err != nil {
		return nil, nil, 0, false, err
	}
	root := syntax.NewRoot(pr.Green)
	tok := root.TokenAtOffset(pos.Pos)
	if tok == nil {
		return body, root, 0, false, nil
	}
	for n := tok.Parent(); n != nil; n = n.Parent() {
		if n.Kind() == syntax.KindBinding {
			if kids := n.ChildNodes(); len(kids) >= 2 && kids[0].TextRange().Contains(pos.Pos) {
				if id, ok := body.SourceMap.ExprForNode(kids[1]); ok {
					return body, root, id, true, nil
				}
			}
		}
		if id, ok := body.SourceMap.ExprForNode(n); ok {
			return body, root, id, true, nil
		}
	}
	return body, root, 0, false, nil
}

// bindingNameRange narrows a binding's value-expression node to the
// identifier token of its AttrPath — the precise name occurrence a rename
// or goto-definition should land on, rather than the RHS value the HIR
// source map points at directly (AttrEntry carries no ExprId of its own for
// the key, only for the value).
func bindingNameRange(valueNode *syntax.SyntaxNode) (vfs.TextRange, bool) {
	for n := valueNode; n != nil; n = n.Parent() {
		if n.Kind() != syntax.KindBinding {
			continue
		}
		path := n.FirstChildNode(syntax.KindAttrPath)
		if path == nil {
			return vfs.TextRange{}, false
		}
		segs := path.ChildNodesOfKind(syntax.KindAttrPathValue)
		if len(segs) == 0 {
			return vfs.TextRange{}, false
		}
		last := segs[len(segs)-1]
		if tok := last.FirstToken(syntax.KindIdent); tok != nil {
			return tok.TextRange(), true
		}
		if tok := last.FirstToken(syntax.KindString); tok != nil {
			return tok.TextRange(), true
		}
		return last.TextRange(), true
	}
	return vfs.TextRange{}, false
}

// defFocusRange returns the range a user-facing operation should highlight
// for a resolved definition: the precise name token when def is a binding's
// value (the common case), or the owning construct's own range as a
// fallback for inherited names and lambda parameters, whose Def is
// necessarily imprecise (see DESIGN.md).
func defFocusRange(root *syntax.SyntaxNode, body *hir.Body, def hir.ExprId) (vfs.TextRange, bool) {
	ptr, ok := body.SourceMap.PtrForExpr(def)
	if !ok {
		return vfs.TextRange{}, false
	}
	node := ptr.Resolve(root)
	if node == nil {
		return ptr.Range, true
	}
	if r, ok := bindingNameRange(node); ok {
		return r, true
	}
	return ptr.Range, true
}

// refOrOwnExprID returns the definition a reference at id resolves to, or id
// itself when id is not an ExprRef (the cursor already sits on a defining
// construct, e.g. a lambda parameter clicked directly).
func refOrOwnExprID(tree *scope.ScopeTree, body *hir.Body, id hir.ExprId) (hir.ExprId, bool) {
	if _, isRef := body.Expr(id).(hir.ExprRef); isRef {
		res := tree.ResolveRef(body, id)
		if res.Kind != scope.ResDefinition {
			return 0, false
		}
		return res.Def, true
	}
	return id, true
}

// refineDiagnosticRanges narrows KindUnusedRec/KindUnusedWith diagnostics
// (whose Range starts out as the owning construct's full span) down to the
// single `rec`/`with` keyword token, which is what an editor should actually
// underline.
func refineDiagnosticRanges(root *syntax.SyntaxNode, diags []diagnostic.Diagnostic) []diagnostic.Diagnostic {
	for i := range diags {
		d := &diags[i]
		var kw syntax.Kind
		switch d.Kind {
		case diagnostic.KindUnusedRec:
			kw = syntax.KindKwRec
		case diagnostic.KindUnusedWith:
			kw = syntax.KindKwWith
		default:
			continue
		}
		n := root.NodeAtRange(d.Range)
		if n == nil {
			continue
		}
		if tok := n.FirstToken(kw); tok != nil {
			d.Range = tok.TextRange()
		}
	}
	return diags
}

// Diagnostics returns the full diagnostic set for file — syntax errors,
// lowering diagnostics, and name-resolution/liveness diagnostics — sorted by
// (start offset, kind) and capped at max (DefaultMaxDiagnostics if max <= 0).
func (a *Analysis) Diagnostics(file vfs.FileId, max int) ([]diagnostic.Diagnostic, error) {
	if max <= 0 {
		max = DefaultMaxDiagnostics
	}
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

	diags := make([]diagnostic.Diagnostic, 0, len(pr.Errors)+len(body.Diagnostics))
	for _, e := range pr.Errors {
		diags = append(diags, diagnostic.NewSyntaxError(e.Range, e.Kind))
	}
	diags = append(diags, body.Diagnostics...)
	diags = append(diags, scope.Diagnostics(tree, body)...)

	diags = refineDiagnosticRanges(syntax.NewRoot(pr.Green), diags)

	sort.SliceStable(diags, func(i, j int) bool {
		oi, ki := diags[i].SortKey()
		oj, kj := diags[j].SortKey()
		if oi != oj {
			return oi < oj
		}
		return ki < kj
	})

	if len(diags) > max {
		diags = diags[:max]
	}
	return diags, nil
}

// GotoDefinition resolves the reference at pos and returns the focused range
// of its definition, or an empty slice if pos is not a reference or it
// resolves to anything other than a local definition (builtins and `with`
// fallbacks have no single defining location).
func (a *Analysis) GotoDefinition(pos vfs.FilePos) ([]vfs.FileRange, error) {
	if err := a.snap.CheckCancelled(); err != nil {
		return nil, err
	}
	body, root, id, ok, err := a.nodeAndExprAtPos(pos)
	if err != nil || !ok {
		return nil, err
	}
	if _, isRef := body.Expr(id).(hir.ExprRef); !isRef {
		return nil, nil
	}
	tree, err := a.scopeTree(pos.File)
	if err != nil {
		return nil, err
	}
	res := tree.ResolveRef(body, id)
	if res.Kind != scope.ResDefinition {
		return nil, nil
	}
	focus, ok := defFocusRange(root, body, res.Def)
	if !ok {
		return nil, nil
	}
	return []vfs.FileRange{vfs.NewFileRange(pos.File, focus)}, nil
}

// References resolves the symbol at pos to a definition (directly, if pos
// sits on one, or via a reference) and returns the definition's own focused
// range followed by every reference range, in source order.
func (a *Analysis) References(pos vfs.FilePos) ([]vfs.FileRange, error) {
	if err := a.snap.CheckCancelled(); err != nil {
		return nil, err
	}
	body, root, id, ok, err := a.nodeAndExprAtPos(pos)
	if err != nil || !ok {
		return nil, err
	}
	tree, err := a.scopeTree(pos.File)
	if err != nil {
		return nil, err
	}
	def, ok := refOrOwnExprID(tree, body, id)
	if !ok {
		return nil, nil
	}

	out := make([]vfs.FileRange, 0, 4)
	if focus, ok := defFocusRange(root, body, def); ok {
		out = append(out, vfs.NewFileRange(pos.File, focus))
	}
	for _, ref := range tree.References(body, def) {
		ptr, ok := body.SourceMap.PtrForExpr(ref)
		if !ok {
			continue
		}
		out = append(out, vfs.NewFileRange(pos.File, ptr.Range))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start < out[j].Range.Start })
	return out, nil
}

// SelectionRange returns the chain of syntactic node ranges enclosing pos,
// innermost first, for an editor's expand-selection command. An empty
// enclosing range (which only occurs at an empty file) is replaced by the
// single token's range at pos.
func (a *Analysis) SelectionRange(pos vfs.FilePos) ([]vfs.TextRange, error) {
	pr, err := a.parse(pos.File)
	if err != nil {
		return nil, err
	}
	root := syntax.NewRoot(pr.Green)
	node := root.NodeAtRange(vfs.EmptyRange(pos.Pos))

	seen := make(map[vfs.TextRange]bool)
	ranges := make([]vfs.TextRange, 0, 8)
	for _, n := range node.Ancestors() {
		r := n.TextRange()
		if r.IsEmpty() {
			if tok := root.TokenAtOffset(pos.Pos); tok != nil {
				r = tok.TextRange()
			}
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		ranges = append(ranges, r)
	}
	return ranges, nil
}
