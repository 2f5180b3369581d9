// Package diagnostic defines the pure diagnostic data model: kinds,
// severities, and the data/presentation split described in SPEC_FULL.md
// §9.1, grounded on original_source/crates/ide/src/diagnostic.rs.
package diagnostic

// SyntaxErrorKind enumerates the recoverable parse errors from internal/syntax.
type SyntaxErrorKind int

const (
	MissingToken SyntaxErrorKind = iota
	MissingExpr
	MissingElemExpr
	MissingAttr
	MissingParamIdent
	MissingBinding
	NestTooDeep
	MultipleRoots
	PathTrailingSlash
	PathDuplicatedSlashes
	MultipleNoAssoc
)

func (k SyntaxErrorKind) String() string {
	switch k {
	case MissingToken:
		return "missing token"
	case MissingExpr:
		return "missing expression"
	case MissingElemExpr:
		return "missing list element expression"
	case MissingAttr:
		return "missing attribute name"
	case MissingParamIdent:
		return "missing parameter name"
	case MissingBinding:
		return "missing binding"
	case NestTooDeep:
		return "nesting too deep"
	case MultipleRoots:
		return "multiple root expressions"
	case PathTrailingSlash:
		return "path literal has a trailing slash"
	case PathDuplicatedSlashes:
		return "path literal has duplicated slashes"
	case MultipleNoAssoc:
		return "operator requires parentheses to disambiguate"
	default:
		return "syntax error"
	}
}

// Kind enumerates every diagnostic kind the core can emit, tagged by which
// layer produces it (syntactic / lowering / resolution / liveness per §3).
type Kind int

const (
	KindSyntaxError Kind = iota

	// Lowering.
	KindInvalidDynamic
	KindDuplicatedKey
	KindEmptyInherit
	KindEmptyLetIn
	KindLetAttrset
	KindUriLiteral
	KindMergePlainRecAttrset
	KindMergeRecAttrset

	// Name resolution.
	KindUndefinedName

	// Liveness.
	KindUnusedBinding
	KindUnusedWith
	KindUnusedRec
)

// Severity classifies how a diagnostic should be surfaced.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityIncompleteSyntax
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityIncompleteSyntax:
		return "incomplete-syntax"
	default:
		return "unknown"
	}
}

// Severity returns the kind's severity. For KindSyntaxError it further
// depends on the nested SyntaxErrorKind, passed explicitly since Kind alone
// does not carry it (mirrors diagnostic.rs's match on the nested enum).
func (k Kind) Severity(synKind SyntaxErrorKind) Severity {
	if k == KindSyntaxError {
		switch synKind {
		case MultipleRoots, PathTrailingSlash, PathDuplicatedSlashes, MultipleNoAssoc:
			return SeverityError
		default:
			return SeverityIncompleteSyntax
		}
	}
	switch k {
	case KindInvalidDynamic, KindDuplicatedKey, KindUndefinedName:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// Unnecessary reports whether the kind should drive grey-out rendering.
func (k Kind) Unnecessary() bool {
	switch k {
	case KindEmptyInherit, KindUnusedBinding, KindUnusedWith, KindUnusedRec:
		return true
	default:
		return false
	}
}

// Deprecated reports whether the kind marks deprecated syntax.
func (k Kind) Deprecated() bool {
	switch k {
	case KindLetAttrset, KindUriLiteral:
		return true
	default:
		return false
	}
}

// Message returns the kind's fixed human-readable summary. For
// KindSyntaxError the caller's SyntaxErrorKind supplies the text.
func (k Kind) Message(synKind SyntaxErrorKind) string {
	switch k {
	case KindSyntaxError:
		return synKind.String()
	case KindInvalidDynamic:
		return "invalid location of dynamic attribute"
	case KindDuplicatedKey:
		return "duplicated name definition"
	case KindEmptyInherit:
		return "nothing inherited"
	case KindEmptyLetIn:
		return "empty let-in"
	case KindLetAttrset:
		return "`let { ... }` is deprecated. Use `let ... in ...` instead"
	case KindUriLiteral:
		return "URI literal is confusing and deprecated. Use strings instead"
	case KindMergePlainRecAttrset:
		return "merging non-rec attrset with rec attrset; the latter `rec` is implicitly ignored"
	case KindMergeRecAttrset:
		return "merging rec attrset with other attrsets or attrpaths; merged values can unexpectedly reference each other as in a single `rec { ... }`"
	case KindUndefinedName:
		return "undefined name"
	case KindUnusedBinding:
		return "unused binding"
	case KindUnusedWith:
		return "unused `with`"
	case KindUnusedRec:
		return "unused `rec`"
	default:
		return "unknown diagnostic"
	}
}
