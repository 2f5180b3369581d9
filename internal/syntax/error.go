package syntax

import (
	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/vfs"
)

// Error is one recoverable parse error, carrying the exact range that
// should be underlined and which diagnostic.SyntaxErrorKind it represents.
// Reusing diagnostic's kind enum (rather than a parallel one) keeps the
// parser and the diagnostic-severity table in §6 from drifting apart.
type Error struct {
	Range vfs.TextRange
	Kind  diagnostic.SyntaxErrorKind
}

func (e Error) String() string {
	return e.Kind.String()
}
