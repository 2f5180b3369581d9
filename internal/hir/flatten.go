package hir

import (
	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/syntax"
)

// pendingBinding is one Binding node after its attribute path has been read
// off but before siblings sharing a prefix have been merged together.
type pendingBinding struct {
	path  []PathPart
	value ExprId
	node  *syntax.SyntaxNode
}

// collectBindings reads every Binding/Inherit child of an attrset-like node
// into flattened AttrEntry/DynamicEntry/InheritEntry lists, merging
// siblings that share a path prefix into nested records the way
// WalkFieldPaths walks and accumulates a dotted path — except here the
// accumulation builds a record tree instead of a flat list of leaf paths.
// letLike forbids dynamic keys entirely, matching `let`/`let { }` bindings
// needing statically known names.
func (l *lowerer) collectBindings(nodes []*syntax.SyntaxNode, letLike bool) ([]AttrEntry, []DynamicEntry, []InheritEntry) {
	var pend []pendingBinding
	var inherits []InheritEntry
	for _, n := range nodes {
		switch n.Kind() {
		case syntax.KindInherit:
			inherits = append(inherits, l.lowerInherit(n))
		case syntax.KindBinding:
			kids := n.ChildNodes()
			if len(kids) < 1 {
				continue
			}
			pathNode := kids[0]
			var path []PathPart
			for _, k := range pathNode.ChildNodes() {
				path = append(path, l.lowerAttrKeyNode(k))
			}
			var valueID ExprId
			if len(kids) >= 2 {
				valueID = l.lowerExpr(kids[1])
			} else {
				valueID = l.push(n, ExprMissing{})
			}
			if letLike {
				if anyDynamic(path) {
					l.addDiag(n, diagnostic.KindInvalidDynamic)
					continue
				}
			} else if nonFinalDynamic(path) {
				l.addDiag(n, diagnostic.KindInvalidDynamic)
				continue
			}
			pend = append(pend, pendingBinding{path: path, value: valueID, node: n})
		}
	}
	entries, dyn := l.flattenPending(pend)
	return entries, dyn, inherits
}

func anyDynamic(path []PathPart) bool {
	for _, p := range path {
		if p.IsDynamic() {
			return true
		}
	}
	return false
}

func nonFinalDynamic(path []PathPart) bool {
	for i, p := range path {
		if p.IsDynamic() && i != len(path)-1 {
			return true
		}
	}
	return false
}

// flattenPending groups same-level bindings by their first path segment,
// recursing into the remaining segments for each group, and merging any
// group that mixes a direct leaf value with further attrpath continuations
// (SPEC_FULL.md §4.4's MergePlainRecAttrset / MergeRecAttrset diagnostics).
func (l *lowerer) flattenPending(pend []pendingBinding) ([]AttrEntry, []DynamicEntry) {
	var entries []AttrEntry
	var dyn []DynamicEntry

	var order []string
	leaves := map[string][]pendingBinding{}
	conts := map[string][]pendingBinding{}

	for _, pb := range pend {
		if len(pb.path) == 0 {
			continue
		}
		first := pb.path[0]
		if first.IsDynamic() {
			if len(pb.path) == 1 {
				dyn = append(dyn, DynamicEntry{Key: *first.Dynamic, Value: pb.value})
			}
			continue
		}
		name := first.Name
		if _, seen := leaves[name]; !seen {
			if _, seen2 := conts[name]; !seen2 {
				order = append(order, name)
			}
		}
		rest := pb.path[1:]
		if len(rest) == 0 {
			leaves[name] = append(leaves[name], pb)
		} else {
			conts[name] = append(conts[name], pendingBinding{path: rest, value: pb.value, node: pb.node})
		}
	}

	for _, name := range order {
		ls := leaves[name]
		cs := conts[name]
		switch {
		case len(ls) > 0 && len(cs) == 0:
			for _, extra := range ls[1:] {
				l.addDiagWithNote(extra.node, diagnostic.KindDuplicatedKey, ls[0].node, "first defined here")
			}
			entries = append(entries, AttrEntry{Name: name, Value: ls[0].value})
		case len(ls) == 0 && len(cs) > 0:
			subEntries, subDyn := l.flattenPending(cs)
			nested := l.push(cs[0].node, ExprAttrSet{Entries: subEntries, Dynamic: subDyn})
			entries = append(entries, AttrEntry{Name: name, Value: nested})
		default:
			leafIsRec := false
			if as, ok := l.arena[ls[0].value].(ExprAttrSet); ok {
				leafIsRec = as.Rec
			}
			if leafIsRec {
				l.addDiag(ls[0].node, diagnostic.KindMergeRecAttrset)
			} else {
				l.addDiag(ls[0].node, diagnostic.KindMergePlainRecAttrset)
			}
			for _, extra := range ls[1:] {
				l.addDiagWithNote(extra.node, diagnostic.KindDuplicatedKey, ls[0].node, "first defined here")
			}
			subEntries, subDyn := l.flattenPending(cs)
			nested := l.push(cs[0].node, ExprAttrSet{Entries: subEntries, Dynamic: subDyn})
			entries = append(entries, AttrEntry{Name: name, Value: nested})
		}
	}
	return entries, dyn
}
