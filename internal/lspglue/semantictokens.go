package lspglue

import (
	"github.com/attrlang/attrls/internal/ide"
	"github.com/attrlang/attrls/internal/vfs"
)

// highlightTagLegend's index i must equal int(ide.HighlightTag(i)) — the Tag
// constants are declared in that exact order, so no separate lookup table
// is needed to turn a classified token into its legend position.
var highlightTagLegend = []string{
	"keyword",
	"variable",
	"number",
	"string",
	"path",
	"uri",
	"comment",
	"operator",
}

// highlightModifierLegend's bit i must equal ide.HighlightModifier(1 << i),
// for the same reason.
var highlightModifierLegend = []string{
	"definition",
	"builtin",
	"withResolved",
	"unresolved",
	"escape",
}

func (s *Server) handleSemanticTokensFull(params any) (any, *rpcError) {
	uri, ok := paramsURI(params)
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "semanticTokens/full: missing textDocument"}
	}
	file, ok := s.host.Vfs().FileForURI(uri)
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "semanticTokens/full: unknown document " + uri}
	}
	return s.withAnalysis(file, func(a *ide.Analysis, lm *vfs.LineMap, content []byte) (any, *rpcError) {
		ranges, err := a.SyntaxHighlight(file, nil)
		if err != nil {
			return nil, queryError(err)
		}
		return map[string]any{"data": encodeSemanticTokens(lm, content, ranges)}, nil
	})
}

// encodeSemanticTokens produces the editor protocol's delta-encoded token
// array: five ints per token (deltaLine, deltaStartChar, length, tokenType,
// tokenModifiers). Tokens are assumed single-line, true for every kind
// internal/ide.SyntaxHighlight emits over this language's grammar.
func encodeSemanticTokens(lm *vfs.LineMap, content []byte, ranges []ide.HighlightRange) []int {
	data := make([]int, 0, len(ranges)*5)
	var prevLine, prevChar uint32
	for _, r := range ranges {
		start := toPosition(lm, content, r.Range.Start)
		end := toPosition(lm, content, r.Range.End)
		length := end.Character - start.Character

		var deltaLine, deltaChar uint32
		if start.Line == prevLine {
			deltaLine = 0
			deltaChar = start.Character - prevChar
		} else {
			deltaLine = start.Line - prevLine
			deltaChar = start.Character
		}
		data = append(data, int(deltaLine), int(deltaChar), int(length), int(r.Tag), int(r.Modifiers))
		prevLine, prevChar = start.Line, start.Character
	}
	return data
}
