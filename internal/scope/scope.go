// Package scope builds the per-file lexical scope forest and answers name
// resolution queries over it (SPEC_FULL.md §3, §4.5): a bottom-up pass over
// the HIR arena records, for every let-group, recursive record, lambda
// parameter list, and `with`, which names it introduces and which ExprId
// defines each; resolve_name then walks the chain of enclosing scopes
// outward from a reference, letting static scopes shadow `with` scopes
// while the innermost `with` still wins as a fallback.
package scope

import (
	"github.com/attrlang/attrls/internal/hir"
)

// ScopeId indexes into a ScopeTree's Scopes slice.
type ScopeId int

// noScope is the sentinel "no parent" / "no enclosing scope" value.
const noScope ScopeId = -1

// ScopeKind classifies what introduced a Scope, matching SPEC_FULL.md §3's
// four scope kinds.
type ScopeKind int

const (
	ScopeLetGroup ScopeKind = iota
	ScopeRecAttrset
	ScopeLambdaParams
	ScopeWith
)

// Scope is one lexical scope: a parent link, a kind, and the names it
// introduces mapped to the ExprId that defines each. For ScopeWith, Names
// is always empty — a `with` introduces no statically-known names, only a
// dynamic fallback (its Owner is the ExprWith itself).
type Scope struct {
	Parent ScopeId
	Kind   ScopeKind
	Names  map[string]hir.ExprId
	// Owner is the ExprId of the construct that introduced this scope
	// (the ExprLetIn, the ExprAttrSet, the ExprLambda, or the ExprWith).
	Owner hir.ExprId
}

// ResolutionKind discriminates a Resolution's variant.
type ResolutionKind int

const (
	ResDefinition ResolutionKind = iota
	ResBuiltin
	ResWithExpr
	ResUndefined
)

// Resolution is the sum type name_reference(ExprId) produces (SPEC_FULL.md
// §3). Def is meaningful only for ResDefinition (the defining ExprId,
// imprecise for inherited names and lambda parameters — see DESIGN.md);
// BuiltinName only for ResBuiltin; WithOwner (the ExprWith's own ExprId)
// only for ResWithExpr.
type Resolution struct {
	Kind        ResolutionKind
	Def         hir.ExprId
	BuiltinName string
	WithOwner   hir.ExprId
}

// builtinNames is the fixed set of names every scope chain resolves to
// ResBuiltin as a last resort before Undefined, matching the language's
// standard library surface (SPEC_FULL.md does not enumerate these
// precisely since evaluation is out of scope; this list covers the
// attribute-record-shape predicates and literals a configuration language
// of this kind universally exposes).
var builtinNames = map[string]bool{
	"true": true, "false": true, "null": true,
	"builtins": true,
	"import":   true,
	"map": true, "filter": true, "fold": true,
	"toString": true, "isAttrs": true, "isList": true,
	"isString": true, "isInt": true, "isBool": true, "isFunction": true,
}

// IsBuiltin reports whether name is a recognized built-in.
func IsBuiltin(name string) bool { return builtinNames[name] }

// BuiltinNames returns every recognized built-in name, for completion.
func BuiltinNames() []string {
	out := make([]string, 0, len(builtinNames))
	for name := range builtinNames {
		out = append(out, name)
	}
	return out
}

// ScopeTree is one file's scope forest plus the per-expression "innermost
// enclosing scope" annotation SPEC_FULL.md §3 requires.
type ScopeTree struct {
	Scopes    []Scope
	enclosing map[hir.ExprId]ScopeId
	// refs is every ExprRef's ExprId together with the scope enclosing it,
	// recorded during the walk so resolveRef does not need a second pass.
	refs map[hir.ExprId]ScopeId
}

// EnclosingScope returns the innermost scope enclosing expr, or false if
// expr was never visited (e.g. it is the root before anything is built).
func (t *ScopeTree) EnclosingScope(expr hir.ExprId) (ScopeId, bool) {
	id, ok := t.enclosing[expr]
	return id, ok
}

// Build walks body's arena bottom-up from its root, threading the current
// scope chain, and returns the resulting ScopeTree.
func Build(body *hir.Body) *ScopeTree {
	t := &ScopeTree{
		enclosing: make(map[hir.ExprId]ScopeId),
		refs:      make(map[hir.ExprId]ScopeId),
	}
	b := &builder{body: body, tree: t}
	b.walk(body.Root, noScope)
	return t
}

type builder struct {
	body *hir.Body
	tree *ScopeTree
}

func (b *builder) pushScope(parent ScopeId, kind ScopeKind, owner hir.ExprId) ScopeId {
	id := ScopeId(len(b.tree.Scopes))
	b.tree.Scopes = append(b.tree.Scopes, Scope{Parent: parent, Kind: kind, Names: make(map[string]hir.ExprId), Owner: owner})
	return id
}

func (b *builder) scope(id ScopeId) *Scope { return &b.tree.Scopes[id] }

// walk visits expr under the given enclosing scope, recording the
// annotation, introducing any scopes expr itself defines, and recursing
// into children under the (possibly new) current scope.
func (b *builder) walk(id hir.ExprId, current ScopeId) {
	b.tree.enclosing[id] = current

	switch e := b.body.Expr(id).(type) {
	case hir.ExprMissing, hir.ExprLiteral:
		// no children

	case hir.ExprRef:
		b.tree.refs[id] = current

	case hir.ExprList:
		for _, el := range e.Elements {
			b.walk(el, current)
		}

	case hir.ExprAttrSet:
		inner := current
		if e.Rec {
			inner = b.pushScope(current, ScopeRecAttrset, id)
			b.populateAttrSetNames(inner, e)
		}
		for _, entry := range e.Entries {
			b.walk(entry.Value, inner)
		}
		for _, dyn := range e.Dynamic {
			b.walk(dyn.Key, current) // dynamic keys are evaluated outside any rec scope they'd otherwise shadow into
			b.walk(dyn.Value, inner)
		}
		for _, inh := range e.Inherits {
			if inh.From != nil {
				b.walk(*inh.From, current)
			}
		}

	case hir.ExprLetIn:
		inner := b.pushScope(current, ScopeLetGroup, id)
		for _, entry := range e.Entries {
			// entry.Value is the one ExprId unique to this particular
			// binding (the LetIn's own id is shared by every binding in
			// the group and would collapse them all into one Def).
			b.scope(inner).Names[entry.Name] = entry.Value
		}
		for _, inh := range e.Inherits {
			for _, name := range inh.Names {
				b.scope(inner).Names[name] = id
			}
		}
		for _, entry := range e.Entries {
			b.walk(entry.Value, inner)
		}
		for _, dyn := range e.Dynamic {
			b.walk(dyn.Key, inner)
			b.walk(dyn.Value, inner)
		}
		for _, inh := range e.Inherits {
			if inh.From != nil {
				b.walk(*inh.From, current)
			}
		}
		b.walk(e.Body, inner)

	case hir.ExprWith:
		b.walk(e.Namespace, current)
		inner := b.pushScope(current, ScopeWith, id)
		b.walk(e.Body, inner)

	case hir.ExprIf:
		b.walk(e.Cond, current)
		b.walk(e.Then, current)
		b.walk(e.Else, current)

	case hir.ExprAssert:
		b.walk(e.Cond, current)
		b.walk(e.Body, current)

	case hir.ExprUnary:
		b.walk(e.Operand, current)

	case hir.ExprBinary:
		b.walk(e.LHS, current)
		b.walk(e.RHS, current)

	case hir.ExprApply:
		b.walk(e.Func, current)
		b.walk(e.Arg, current)

	case hir.ExprSelect:
		b.walk(e.Set, current)
		if e.Key.IsDynamic() {
			b.walk(*e.Key.Dynamic, current)
		}
		if e.Default != nil {
			b.walk(*e.Default, current)
		}

	case hir.ExprHasAttr:
		b.walk(e.Set, current)
		for _, part := range e.Path {
			if part.IsDynamic() {
				b.walk(*part.Dynamic, current)
			}
		}

	case hir.ExprLambda:
		inner := b.pushScope(current, ScopeLambdaParams, id)
		b.populateParamNames(inner, e.Param, id)
		for _, f := range e.Param.Formals {
			if f.Default != nil {
				b.walk(*f.Default, inner)
			}
		}
		b.walk(e.Body, inner)

	default:
		// Unknown Expr variant: nothing to recurse into. New hir.Expr
		// kinds must add a case above before scope resolution sees them.
	}
}

// populateAttrSetNames records a recursive record's static entries and
// inherited names. Plain (non-rec) attrsets never introduce a scope, so
// this is only called for e.Rec == true.
func (b *builder) populateAttrSetNames(scopeID ScopeId, e hir.ExprAttrSet) {
	s := b.scope(scopeID)
	for _, entry := range e.Entries {
		// entry.Value uniquely identifies this binding; s.Owner (the
		// attrset's own id) is shared by every entry and would collapse
		// them all into one Def.
		s.Names[entry.Name] = entry.Value
	}
	for _, inh := range e.Inherits {
		for _, name := range inh.Names {
			s.Names[name] = s.Owner
		}
	}
}

// populateParamNames records a lambda's bound names: the bare identifier,
// or every formal plus an optional "@name" binding of the whole record.
func (b *builder) populateParamNames(scopeID ScopeId, p hir.Param, owner hir.ExprId) {
	s := b.scope(scopeID)
	if !p.IsFormals {
		if p.Name != "" {
			s.Names[p.Name] = owner
		}
		return
	}
	for _, f := range p.Formals {
		s.Names[f.Name] = owner
	}
	if p.BindName != "" {
		s.Names[p.BindName] = owner
	}
}

// ResolveRef answers resolve_name(ExprId) for a reference expression
// already known to be an hir.ExprRef, per SPEC_FULL.md §4.5: static scopes
// shadow `with`; the innermost `with` in the chain wins as a fallback when
// no static scope binds the name.
func (t *ScopeTree) ResolveRef(body *hir.Body, ref hir.ExprId) Resolution {
	refExpr, ok := body.Expr(ref).(hir.ExprRef)
	if !ok {
		return Resolution{Kind: ResUndefined}
	}
	current, ok := t.refs[ref]
	if !ok {
		current, ok = t.enclosing[ref]
		if !ok {
			return Resolution{Kind: ResUndefined}
		}
	}
	return t.resolveName(refExpr.Name, current)
}

func (t *ScopeTree) resolveName(name string, from ScopeId) Resolution {
	var fallbackWith *hir.ExprId
	for s := from; s != noScope; s = t.Scopes[s].Parent {
		scope := &t.Scopes[s]
		if scope.Kind == ScopeWith {
			if fallbackWith == nil {
				owner := scope.Owner
				fallbackWith = &owner
			}
			continue
		}
		if def, ok := scope.Names[name]; ok {
			return Resolution{Kind: ResDefinition, Def: def}
		}
	}
	if fallbackWith != nil {
		return Resolution{Kind: ResWithExpr, WithOwner: *fallbackWith}
	}
	if IsBuiltin(name) {
		return Resolution{Kind: ResBuiltin, BuiltinName: name}
	}
	return Resolution{Kind: ResUndefined}
}

// Scope returns the scope at id, for callers (internal/ide) that walk the
// chain themselves, e.g. to list every name visible for completion.
func (t *ScopeTree) Scope(id ScopeId) Scope { return t.Scopes[id] }

// Chain returns the scopes from `from` outward to the file root, innermost
// first.
func (t *ScopeTree) Chain(from ScopeId) []ScopeId {
	var out []ScopeId
	for s := from; s != noScope; s = t.Scopes[s].Parent {
		out = append(out, s)
	}
	return out
}

// References returns every ExprRef in the tree resolving to def, read off
// the refs map built during Build — used by both internal/ide.References
// and the liveness pass.
func (t *ScopeTree) References(body *hir.Body, def hir.ExprId) []hir.ExprId {
	var out []hir.ExprId
	for ref := range t.refs {
		res := t.ResolveRef(body, ref)
		if res.Kind == ResDefinition && res.Def == def {
			out = append(out, ref)
		}
	}
	return out
}

// AllRefs returns every reference ExprId the scope tree recorded, in no
// particular order.
func (t *ScopeTree) AllRefs() []hir.ExprId {
	out := make([]hir.ExprId, 0, len(t.refs))
	for ref := range t.refs {
		out = append(out, ref)
	}
	return out
}
