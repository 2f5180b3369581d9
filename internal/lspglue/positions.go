package lspglue

import (
	"unicode/utf8"

	"github.com/attrlang/attrls/internal/vfs"
)

// Position is the editor protocol's 0-based line/character pair, with
// Character counted in UTF-16 code units — never the same number as a byte
// offset once a line contains anything outside ASCII. vfs.LineMap
// deliberately stops at UTF-8 byte columns (see its doc comment); converting
// the rest of the way is this package's job alone.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Range is a half-open [Start, End) pair of Positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// lineBytes returns the raw bytes of line within content, using lm to find
// its start and the next line's start (or content's end, for the last
// line).
func lineBytes(lm *vfs.LineMap, content []byte, line uint32) []byte {
	start, ok := lm.LineColToOffset(vfs.LineCol{Line: line, Column: 0})
	if !ok {
		return nil
	}
	end := vfs.Pos(len(content))
	if next, ok := lm.LineColToOffset(vfs.LineCol{Line: line + 1, Column: 0}); ok {
		end = next
	}
	if int(start) > len(content) || int(end) > len(content) || start > end {
		return nil
	}
	return content[start:end]
}

// utf16RuneLen reports how many UTF-16 code units r encodes to: 1 for the
// BMP, 2 for anything requiring a surrogate pair.
func utf16RuneLen(r rune) uint32 {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// byteColToUTF16 converts a byte column within line into its UTF-16
// character count, by walking line's runes up to that byte.
func byteColToUTF16(line []byte, byteCol uint32) uint32 {
	var b, u uint32
	for b < byteCol && int(b) < len(line) {
		r, size := utf8.DecodeRune(line[b:])
		b += uint32(size)
		u += utf16RuneLen(r)
	}
	return u
}

// utf16ColToByteCol is byteColToUTF16's inverse: it walks line's runes,
// accumulating UTF-16 units, and stops at the byte offset where utf16Col
// units have been consumed. A utf16Col landing inside a surrogate pair (a
// malformed position) resolves to the byte before that rune.
func utf16ColToByteCol(line []byte, utf16Col uint32) uint32 {
	var b, u uint32
	for u < utf16Col && int(b) < len(line) {
		r, size := utf8.DecodeRune(line[b:])
		if u+utf16RuneLen(r) > utf16Col {
			break
		}
		b += uint32(size)
		u += utf16RuneLen(r)
	}
	return b
}

// toFilePos converts a wire Position into a vfs.FilePos (a byte offset) for
// file, given its current content and line map.
func toFilePos(lm *vfs.LineMap, content []byte, file vfs.FileId, pos Position) vfs.FilePos {
	lineStart, _ := lm.LineColToOffset(vfs.LineCol{Line: pos.Line, Column: 0})
	byteCol := utf16ColToByteCol(lineBytes(lm, content, pos.Line), pos.Character)
	return vfs.NewFilePos(file, lineStart+vfs.Pos(byteCol))
}

// toPosition converts a byte offset into this package's wire Position.
func toPosition(lm *vfs.LineMap, content []byte, offset vfs.Pos) Position {
	lc := lm.OffsetToLineCol(offset)
	lineStart, _ := lm.LineColToOffset(vfs.LineCol{Line: lc.Line, Column: 0})
	u := byteColToUTF16(lineBytes(lm, content, lc.Line), uint32(offset-lineStart))
	return Position{Line: lc.Line, Character: u}
}

// toRange converts a byte-offset vfs.TextRange into a wire Range.
func toRange(lm *vfs.LineMap, content []byte, r vfs.TextRange) Range {
	return Range{Start: toPosition(lm, content, r.Start), End: toPosition(lm, content, r.End)}
}

// toTextRange converts a wire Range within file back to a vfs.TextRange.
func toTextRange(lm *vfs.LineMap, content []byte, file vfs.FileId, r Range) vfs.TextRange {
	start := toFilePos(lm, content, file, r.Start)
	end := toFilePos(lm, content, file, r.End)
	return vfs.NewTextRange(start.Pos, end.Pos)
}
