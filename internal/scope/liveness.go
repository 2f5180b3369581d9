package scope

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/hir"
	"github.com/attrlang/attrls/internal/vfs"
)

// Diagnostics computes KindUndefinedName plus the three liveness kinds
// (KindUnusedBinding, KindUnusedWith, KindUnusedRec) for one file's scope
// tree, per SPEC_FULL.md §4.5.
//
// Liveness is computed by walking every reference once, recording its
// resolved target in a roaring bitmap of "used" ids, then complementing
// that against each scope's "introduced" ids — the teacher's
// MemoryStore.fileToNodes reverse-index-then-bitmap-query shape
// (internal/graph/graph.go), adapted from "file path -> bitmap of node
// ids" to "resolution target -> bitmap of used ids."
//
// Lambda parameter scopes are deliberately excluded from UnusedBinding: an
// unused function parameter is routine (placeholder args, formals kept for
// a stable call shape) rather than the dead-code smell an unused let
// binding or rec entry is, so it is never reported (see DESIGN.md's open
// question decision).
func Diagnostics(tree *ScopeTree, body *hir.Body) []diagnostic.Diagnostic {
	usedDefs := roaring.New()
	usedWith := roaring.New()
	usedRecSelf := roaring.New()

	recScopeOf := recScopeOwners(tree)

	var diags []diagnostic.Diagnostic

	for ref := range tree.refs {
		res := tree.ResolveRef(body, ref)
		switch res.Kind {
		case ResDefinition:
			usedDefs.Add(uint32(res.Def))
			if refScope, ok := tree.refs[ref]; ok {
				if owner, isSelf := tree.isRecSelfReference(refScope, res.Def, recScopeOf); isSelf {
					usedRecSelf.Add(uint32(owner))
				}
			}
		case ResWithExpr:
			usedWith.Add(uint32(res.WithOwner))
		case ResUndefined:
			diags = append(diags, diagnostic.New(exprRange(body, ref), diagnostic.KindUndefinedName))
		}
	}

	for i := range tree.Scopes {
		s := &tree.Scopes[i]
		switch s.Kind {
		case ScopeLetGroup, ScopeRecAttrset:
			for _, def := range s.Names {
				if !usedDefs.Contains(uint32(def)) {
					diags = append(diags, diagnostic.New(exprRange(body, def), diagnostic.KindUnusedBinding))
				}
			}
			if s.Kind == ScopeRecAttrset && !usedRecSelf.Contains(uint32(s.Owner)) {
				diags = append(diags, diagnostic.New(exprRange(body, s.Owner), diagnostic.KindUnusedRec))
			}
		case ScopeWith:
			if !usedWith.Contains(uint32(s.Owner)) {
				diags = append(diags, diagnostic.New(exprRange(body, s.Owner), diagnostic.KindUnusedWith))
			}
		}
	}

	return diags
}

// recScopeOwners maps every name-defining ExprId introduced by a recursive
// record scope back to that scope's id, so a reference's target can be
// tested for rec-self-reference in O(1).
func recScopeOwners(tree *ScopeTree) map[hir.ExprId]ScopeId {
	out := make(map[hir.ExprId]ScopeId)
	for i := range tree.Scopes {
		s := &tree.Scopes[i]
		if s.Kind != ScopeRecAttrset {
			continue
		}
		for _, def := range s.Names {
			out[def] = ScopeId(i)
		}
	}
	return out
}

// isRecSelfReference reports whether a reference resolving to def, found at
// refScope, lies within the same recursive record that def belongs to —
// i.e. the record refers to one of its own entries from another entry,
// which is what makes `rec` meaningful.
func (t *ScopeTree) isRecSelfReference(refScope ScopeId, def hir.ExprId, recScopeOf map[hir.ExprId]ScopeId) (hir.ExprId, bool) {
	owner, ok := recScopeOf[def]
	if !ok {
		return 0, false
	}
	for s := refScope; s != noScope; s = t.Scopes[s].Parent {
		if s == owner {
			return t.Scopes[owner].Owner, true
		}
	}
	return 0, false
}

func exprRange(body *hir.Body, id hir.ExprId) vfs.TextRange {
	ptr, ok := body.SourceMap.PtrForExpr(id)
	if !ok {
		return vfs.TextRange{}
	}
	return ptr.Range
}
