package vfs

import "fmt"

// Pos is a byte offset into a file's text.
type Pos uint32

// TextRange is a half-open [Start, End) byte range.
type TextRange struct {
	Start Pos
	End   Pos
}

// NewTextRange builds a range, panicking if start > end — callers are
// expected to already know their offsets are ordered.
func NewTextRange(start, end Pos) TextRange {
	if start > end {
		panic(fmt.Sprintf("vfs: invalid range [%d, %d)", start, end))
	}
	return TextRange{Start: start, End: end}
}

// EmptyRange returns a zero-length range at pos.
func EmptyRange(pos Pos) TextRange {
	return TextRange{Start: pos, End: pos}
}

func (r TextRange) Len() Pos {
	return r.End - r.Start
}

func (r TextRange) IsEmpty() bool {
	return r.Start == r.End
}

// Contains reports whether pos falls within [Start, End).
// A zero-length range contains only its own offset, which matters for
// cursor-at-a-point lookups that must still match an empty token.
func (r TextRange) Contains(pos Pos) bool {
	if r.IsEmpty() {
		return pos == r.Start
	}
	return r.Start <= pos && pos < r.End
}

// ContainsInclusive reports whether pos falls within [Start, End], used when
// a cursor immediately after the last byte of a token should still count
// (e.g. the editor caret sitting right after an identifier).
func (r TextRange) ContainsInclusive(pos Pos) bool {
	return r.Start <= pos && pos <= r.End
}

// Covers reports whether r strictly contains other (other != r).
func (r TextRange) Covers(other TextRange) bool {
	return r.Start <= other.Start && other.End <= r.End && r != other
}

// Intersects reports whether r and other share at least one byte offset.
func (r TextRange) Intersects(other TextRange) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r TextRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// FileRange pairs a TextRange with the file it belongs to.
type FileRange struct {
	File  FileId
	Range TextRange
}

func NewFileRange(file FileId, r TextRange) FileRange {
	return FileRange{File: file, Range: r}
}

// FilePos pairs a Pos with the file it belongs to.
type FilePos struct {
	File FileId
	Pos  Pos
}

func NewFilePos(file FileId, pos Pos) FilePos {
	return FilePos{File: file, Pos: pos}
}
