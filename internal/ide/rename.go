package ide

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/attrlang/attrls/internal/hir"
	"github.com/attrlang/attrls/internal/scope"
	"github.com/attrlang/attrls/internal/syntax"
	"github.com/attrlang/attrls/internal/vfs"
)

// identPattern matches a valid bare identifier in the language's grammar —
// the same shape the lexer accepts for KindIdent, checked here up front so
// Rename never produces an edit that would fail to reparse.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_'-]*$`)

// RenameError reports why a position cannot be renamed, distinct from a
// plumbing error (unknown file, cancelled snapshot) so lspglue can surface
// it to the editor as a normal, non-fatal rename failure.
type RenameError struct{ Message string }

func (e *RenameError) Error() string { return e.Message }

// PrepareRenameResult is what an editor shows before the user commits a
// rename: the exact range that will be replaced and its current text.
type PrepareRenameResult struct {
	Range vfs.TextRange
	Text  string
}

// PrepareRename reports whether pos can be renamed, and if so the precise
// range and current text of the binding's name — read from real source
// bytes, never TextRange.String() (which has no access to the file's
// content and cannot possibly reconstruct the original text).
func (a *Analysis) PrepareRename(pos vfs.FilePos) (*PrepareRenameResult, error) {
	if err := a.snap.CheckCancelled(); err != nil {
		return nil, err
	}
	body, root, id, ok, err := a.nodeAndExprAtPos(pos)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &RenameError{Message: "no renameable symbol at this position"}
	}
	tree, err := a.scopeTree(pos.File)
	if err != nil {
		return nil, err
	}

	var def hir.ExprId
	if _, isRef := body.Expr(id).(hir.ExprRef); isRef {
		res := tree.ResolveRef(body, id)
		if res.Kind != scope.ResDefinition {
			return nil, &RenameError{Message: "only local bindings can be renamed"}
		}
		def = res.Def
	} else {
		def = id
	}

	focus, ok := isRenameableDefinition(root, body, def)
	if !ok {
		return nil, &RenameError{Message: "only a precisely located local binding can be renamed"}
	}
	content, ok := a.source.FileContent(pos.File)
	if !ok {
		return nil, fmt.Errorf("ide: unknown file %s", pos.File)
	}
	return &PrepareRenameResult{Range: focus, Text: string(content[focus.Start:focus.End])}, nil
}

// isRenameableDefinition reports whether def denotes a single, unambiguous
// name occurrence, and if so its precise range. Inherited names and lambda
// parameters share their owning construct's ExprId as Def (see DESIGN.md),
// so bindingNameRange cannot single out one name among several sharing that
// owner — renaming there would risk silently renaming the wrong thing, so
// it is refused rather than guessed at.
func isRenameableDefinition(root *syntax.SyntaxNode, body *hir.Body, def hir.ExprId) (vfs.TextRange, bool) {
	ptr, ok := body.SourceMap.PtrForExpr(def)
	if !ok {
		return vfs.TextRange{}, false
	}
	node := ptr.Resolve(root)
	if node == nil {
		return vfs.TextRange{}, false
	}
	return bindingNameRange(node)
}

// TextEdit is one replacement within a single file.
type TextEdit struct {
	Range   vfs.TextRange
	NewText string
}

// WorkspaceEdit groups TextEdits by file; today every edit Rename produces
// lands in the same file a reference lives in, since this language has no
// cross-file imports, but the shape stays per-file for symmetry with LSP's
// WorkspaceEdit.
type WorkspaceEdit struct {
	Edits map[vfs.FileId][]TextEdit
}

// Rename validates newName, resolves pos to a definition exactly as
// PrepareRename does, and returns a WorkspaceEdit replacing the definition's
// name and every reference to it.
func (a *Analysis) Rename(pos vfs.FilePos, newName string) (*WorkspaceEdit, error) {
	if !identPattern.MatchString(newName) {
		return nil, &RenameError{Message: "not a valid identifier: " + newName}
	}

	prep, err := a.PrepareRename(pos)
	if err != nil {
		return nil, err
	}

	body, root, id, _, err := a.nodeAndExprAtPos(pos)
	if err != nil {
		return nil, err
	}
	tree, err := a.scopeTree(pos.File)
	if err != nil {
		return nil, err
	}
	def, _ := refOrOwnExprID(tree, body, id)

	edits := []TextEdit{{Range: prep.Range, NewText: newName}}
	for _, ref := range tree.References(body, def) {
		ptr, ok := body.SourceMap.PtrForExpr(ref)
		if !ok {
			continue
		}
		// Replace only the identifier token, not the leading trivia a
		// RefExpr node carries in front of it.
		r := ptr.Range
		if n := ptr.Resolve(root); n != nil {
			if tok := n.FirstToken(syntax.KindIdent); tok != nil {
				r = tok.TextRange()
			}
		}
		edits = append(edits, TextEdit{Range: r, NewText: newName})
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].Range.Start < edits[j].Range.Start })

	return &WorkspaceEdit{Edits: map[vfs.FileId][]TextEdit{pos.File: edits}}, nil
}
