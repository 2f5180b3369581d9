package vfs

import "sort"

// LineMap is a precomputed offset <-> (line, column) table for one file's
// text. Columns are UTF-8 byte offsets within the line; UTF-16 conversion
// for the wire protocol is the editor-adapter's job (internal/lspglue), not
// the core's.
type LineMap struct {
	// lineStarts[i] is the byte offset of the first byte of line i (0-based).
	lineStarts []Pos
	length     Pos
}

// NewLineMap builds a LineMap by scanning text for '\n' bytes.
func NewLineMap(text []byte) *LineMap {
	starts := []Pos{0}
	for i, b := range text {
		if b == '\n' {
			starts = append(starts, Pos(i+1))
		}
	}
	return &LineMap{lineStarts: starts, length: Pos(len(text))}
}

// LineCol is a zero-based (line, column) pair, column measured in bytes.
type LineCol struct {
	Line   uint32
	Column uint32
}

// OffsetToLineCol converts a byte offset to a (line, column) pair. Offsets
// past the end of file clamp to the last valid position.
func (m *LineMap) OffsetToLineCol(offset Pos) LineCol {
	if offset > m.length {
		offset = m.length
	}
	// Find the last line whose start is <= offset.
	line := sort.Search(len(m.lineStarts), func(i int) bool {
		return m.lineStarts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	return LineCol{Line: uint32(line), Column: uint32(offset - m.lineStarts[line])}
}

// LineColToOffset is the inverse of OffsetToLineCol. Returns false if the
// line is out of range; a too-large column clamps to the line's length.
func (m *LineMap) LineColToOffset(lc LineCol) (Pos, bool) {
	if int(lc.Line) >= len(m.lineStarts) {
		return 0, false
	}
	start := m.lineStarts[lc.Line]
	var end Pos
	if int(lc.Line)+1 < len(m.lineStarts) {
		end = m.lineStarts[lc.Line+1]
	} else {
		end = m.length
	}
	offset := start + Pos(lc.Column)
	if offset > end {
		offset = end
	}
	return offset, true
}

// LineCount returns the number of lines in the file (always >= 1).
func (m *LineMap) LineCount() int {
	return len(m.lineStarts)
}
