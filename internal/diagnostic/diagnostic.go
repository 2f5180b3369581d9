package diagnostic

import (
	"github.com/attrlang/attrls/internal/vfs"
)

// RelatedNote is a secondary location attached to a Diagnostic, e.g. the
// first definition site of a duplicated key.
type RelatedNote struct {
	File    vfs.FileId
	Range   vfs.TextRange
	Message string
}

// Diagnostic is the pure data half of a diagnostic: a range, a kind, and
// any related notes. It carries no presentation concerns (severity, tags,
// line/column positions) — those live in Render, per SPEC_FULL.md §9.1's
// data/presentation split.
type Diagnostic struct {
	Range      vfs.TextRange
	Kind       Kind
	SyntaxKind SyntaxErrorKind // only meaningful when Kind == KindSyntaxError
	Notes      []RelatedNote
}

func New(r vfs.TextRange, kind Kind) Diagnostic {
	return Diagnostic{Range: r, Kind: kind}
}

func NewSyntaxError(r vfs.TextRange, synKind SyntaxErrorKind) Diagnostic {
	return Diagnostic{Range: r, Kind: KindSyntaxError, SyntaxKind: synKind}
}

// WithNote returns a copy of d with note appended.
func (d Diagnostic) WithNote(file vfs.FileId, r vfs.TextRange, message string) Diagnostic {
	d.Notes = append(append([]RelatedNote(nil), d.Notes...), RelatedNote{File: file, Range: r, Message: message})
	return d
}

func (d Diagnostic) Severity() Severity {
	return d.Kind.Severity(d.SyntaxKind)
}

func (d Diagnostic) Unnecessary() bool {
	return d.Kind.Unnecessary()
}

func (d Diagnostic) Deprecated() bool {
	return d.Kind.Deprecated()
}

func (d Diagnostic) Message() string {
	return d.Kind.Message(d.SyntaxKind)
}

// SortKey orders diagnostics stably by (start offset, kind-defined order)
// as required by SPEC_FULL.md §4.6.
func (d Diagnostic) SortKey() (uint32, int) {
	return uint32(d.Range.Start), int(d.Kind)
}
