package lspglue

import (
	"errors"
	"strings"

	"github.com/attrlang/attrls/internal/discovery"
	"github.com/attrlang/attrls/internal/host"
	"github.com/attrlang/attrls/internal/ide"
	"github.com/attrlang/attrls/internal/querydb"
	"github.com/attrlang/attrls/internal/vfs"
)

// Config is the single configuration key SPEC_FULL.md §6 describes. Its
// schema is nominally empty; SPEC_FULL.md §9 Open Question 2 adds the one
// field this server actually reads, MaxDiagnostics, with every other field
// of whatever payload the client sends simply ignored.
type Config struct {
	MaxDiagnostics int
}

// dispatch is the tagged table from method name to handler SPEC_FULL.md §9
// describes ("Dynamic dispatch across request types"), expressed as a Go
// switch rather than a literal map so each case can be typed individually.
func (s *Server) dispatch(method string, params any) (any, *rpcError) {
	// Once shutdown has been requested, exit is the only method accepted.
	if method != "exit" && s.host.State() == host.StateStopping {
		return nil, &rpcError{Code: codeInvalidRequest, Message: host.ErrShutdownRequested.Error()}
	}
	switch method {
	case "initialize":
		return s.handleInitialize(params)
	case "initialized":
		return nil, nil
	case "shutdown":
		return s.handleShutdown()
	case "exit":
		s.host.Exit()
		return nil, nil
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(params)
	case "textDocument/didOpen":
		return s.handleDidOpen(params)
	case "textDocument/didChange":
		return s.handleDidChange(params)
	case "textDocument/didClose":
		return nil, nil
	case "textDocument/definition":
		return s.handleDefinition(params)
	case "textDocument/references":
		return s.handleReferences(params)
	case "textDocument/completion":
		return s.handleCompletion(params)
	case "textDocument/selectionRange":
		return s.handleSelectionRange(params)
	case "textDocument/prepareRename":
		return s.handlePrepareRename(params)
	case "textDocument/rename":
		return s.handleRename(params)
	case "textDocument/hover":
		return s.handleHover(params)
	case "textDocument/semanticTokens/full":
		return s.handleSemanticTokensFull(params)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "unknown method: " + method}
	}
}

func defaultCapabilities() map[string]any {
	return map[string]any{
		"textDocumentSync":      2, // Incremental
		"completionProvider":    map[string]any{"triggerCharacters": []string{"."}},
		"definitionProvider":    true,
		"referencesProvider":    true,
		"hoverProvider":         true,
		"renameProvider":        map[string]any{"prepareProvider": true},
		"selectionRangeProvider": true,
		"semanticTokensProvider": map[string]any{
			"legend": map[string]any{
				"tokenTypes":     highlightTagLegend,
				"tokenModifiers": highlightModifierLegend,
			},
			"full": true,
		},
	}
}

// uriToFilePath strips a file:// scheme so the result can be handed to
// internal/discovery's filepath.WalkDir-based walk.
func uriToFilePath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func decodeConfig(root any) Config {
	cfg := Config{MaxDiagnostics: ide.DefaultMaxDiagnostics}
	if v, ok := jpFloat(root, "maxDiagnostics"); ok {
		cfg.MaxDiagnostics = int(v)
	}
	return cfg
}

func (s *Server) handleInitialize(params any) (any, *rpcError) {
	if err := s.host.Activate(); err != nil {
		return nil, &rpcError{Code: codeInvalidRequest, Message: err.Error()}
	}
	if opts, ok := jpAny(params, "initializationOptions"); ok {
		s.cfg = decodeConfig(opts)
	}

	root, ok := jpString(params, "rootUri")
	if !ok {
		root, ok = jpString(params, "rootPath")
	}
	if ok && root != "" {
		opts := discovery.DefaultOptions(uriToFilePath(root))
		if _, _, err := discovery.Seed(s.host, opts); err != nil {
			// A bad workspace root should not prevent the server from
			// starting; the client can still open individual files.
			return map[string]any{"capabilities": defaultCapabilities()}, nil
		}
	}
	return map[string]any{
		"capabilities": defaultCapabilities(),
		"serverInfo":   map[string]any{"name": "attrls"},
	}, nil
}

func (s *Server) handleShutdown() (any, *rpcError) {
	if err := s.host.Shutdown(); err != nil && !errors.Is(err, host.ErrShutdownRequested) {
		return nil, &rpcError{Code: codeInternalError, Message: err.Error()}
	}
	return nil, nil
}

func (s *Server) handleDidChangeConfiguration(params any) (any, *rpcError) {
	if settings, ok := jpAny(params, "settings"); ok {
		s.cfg = decodeConfig(settings)
	}
	return nil, nil
}

func (s *Server) handleDidOpen(params any) (any, *rpcError) {
	uri, ok := jpString(params, "textDocument.uri")
	text, textOk := jpString(params, "textDocument.text")
	if !ok || !textOk {
		return nil, &rpcError{Code: codeInvalidParams, Message: "didOpen: missing textDocument.uri/text"}
	}
	touched, err := s.host.SetURIContent(uri, []byte(text))
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	s.publishDiagnostics(touched)
	return nil, nil
}

func decodePosition(raw any) (Position, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Position{}, false
	}
	line, ok := m["line"].(float64)
	if !ok {
		return Position{}, false
	}
	char, ok := m["character"].(float64)
	if !ok {
		return Position{}, false
	}
	return Position{Line: uint32(line), Character: uint32(char)}, true
}

func decodeRange(raw any) (Range, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Range{}, false
	}
	start, ok := decodePosition(m["start"])
	if !ok {
		return Range{}, false
	}
	end, ok := decodePosition(m["end"])
	if !ok {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

func (s *Server) handleDidChange(params any) (any, *rpcError) {
	uri, ok := jpString(params, "textDocument.uri")
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "didChange: missing textDocument.uri"}
	}
	file, ok := s.host.Vfs().FileForURI(uri)
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "didChange: unknown document " + uri}
	}
	changesRaw, ok := jpAny(params, "contentChanges")
	if !ok {
		return nil, nil
	}
	changes, ok := changesRaw.([]any)
	if !ok {
		return nil, nil
	}

	var touched []vfs.FileId
	for _, raw := range changes {
		change, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		text, _ := change["text"].(string)
		rangeRaw, hasRange := change["range"]
		if !hasRange {
			ft, err := s.host.SetURIContent(uri, []byte(text))
			if err != nil {
				return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
			}
			touched = append(touched, ft...)
			continue
		}
		lm, lmOK := s.host.Vfs().LineMapForFile(file)
		content, contentOK := s.host.Vfs().FileContent(file)
		if !lmOK || !contentOK {
			continue
		}
		r, ok := decodeRange(rangeRaw)
		if !ok {
			continue
		}
		tr := toTextRange(lm, content, file, r)
		ft, err := s.host.ChangeFileContent(file, tr, []byte(text))
		if err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
		}
		touched = append(touched, ft...)
	}
	s.publishDiagnostics(touched)
	return nil, nil
}

// withAnalysis pins a Snapshot, resolves file's LineMap and content, calls
// fn, then always releases the Snapshot — the one place every read-only
// feature handler below funnels through, so none of them can forget to
// Close.
func (s *Server) withAnalysis(file vfs.FileId, fn func(a *ide.Analysis, lm *vfs.LineMap, content []byte) (any, *rpcError)) (any, *rpcError) {
	lm, ok := s.host.Vfs().LineMapForFile(file)
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "unknown file"}
	}
	content, ok := s.host.Vfs().FileContent(file)
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "unknown file"}
	}
	a, err := s.host.Snapshot()
	if err != nil {
		return nil, &rpcError{Code: codeInternalError, Message: err.Error()}
	}
	defer a.Close()
	return fn(a, lm, content)
}

func queryError(err error) *rpcError {
	if errors.Is(err, querydb.ErrCancelled) {
		return &rpcError{Code: codeRequestCancelled, Message: "request cancelled"}
	}
	return &rpcError{Code: codeInternalError, Message: err.Error()}
}

func locationsToWire(uri string, lm *vfs.LineMap, content []byte, ranges []vfs.FileRange) []map[string]any {
	out := make([]map[string]any, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, map[string]any{
			"uri":   uri,
			"range": toRange(lm, content, r.Range),
		})
	}
	return out
}

func (s *Server) resolvePos(params any) (vfs.FileId, string, Position, *rpcError) {
	uri, ok := paramsURI(params)
	pos, posOK := paramsPosition(params)
	if !ok || !posOK {
		return 0, "", Position{}, &rpcError{Code: codeInvalidParams, Message: "missing textDocument/position"}
	}
	file, ok := s.host.Vfs().FileForURI(uri)
	if !ok {
		return 0, "", Position{}, &rpcError{Code: codeInvalidParams, Message: "unknown document " + uri}
	}
	return file, uri, pos, nil
}

func (s *Server) handleDefinition(params any) (any, *rpcError) {
	file, uri, pos, rpcErr := s.resolvePos(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.withAnalysis(file, func(a *ide.Analysis, lm *vfs.LineMap, content []byte) (any, *rpcError) {
		locs, err := a.GotoDefinition(toFilePos(lm, content, file, pos))
		if err != nil {
			return nil, queryError(err)
		}
		return locationsToWire(uri, lm, content, locs), nil
	})
}

func (s *Server) handleReferences(params any) (any, *rpcError) {
	file, uri, pos, rpcErr := s.resolvePos(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.withAnalysis(file, func(a *ide.Analysis, lm *vfs.LineMap, content []byte) (any, *rpcError) {
		refs, err := a.References(toFilePos(lm, content, file, pos))
		if err != nil {
			return nil, queryError(err)
		}
		return locationsToWire(uri, lm, content, refs), nil
	})
}

var completionKindWire = map[ide.CompletionKind]int{
	ide.CompletionBinding:  6,  // Variable
	ide.CompletionBuiltin:  3,  // Function
	ide.CompletionAttrField: 5, // Field
}

func (s *Server) handleCompletion(params any) (any, *rpcError) {
	file, _, pos, rpcErr := s.resolvePos(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.withAnalysis(file, func(a *ide.Analysis, lm *vfs.LineMap, content []byte) (any, *rpcError) {
		items, err := a.Completion(toFilePos(lm, content, file, pos))
		if err != nil {
			return nil, queryError(err)
		}
		wire := make([]map[string]any, 0, len(items))
		for _, it := range items {
			entry := map[string]any{"label": it.Name, "kind": completionKindWire[it.Kind]}
			if it.Detail != "" {
				entry["detail"] = it.Detail
			}
			wire = append(wire, entry)
		}
		return map[string]any{"isIncomplete": false, "items": wire}, nil
	})
}

func (s *Server) handleSelectionRange(params any) (any, *rpcError) {
	file, _, pos, rpcErr := s.resolvePos(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.withAnalysis(file, func(a *ide.Analysis, lm *vfs.LineMap, content []byte) (any, *rpcError) {
		ranges, err := a.SelectionRange(toFilePos(lm, content, file, pos))
		if err != nil {
			return nil, queryError(err)
		}
		return []any{buildSelectionRangeChain(lm, content, ranges)}, nil
	})
}

type selectionRangeNode struct {
	Range  Range               `json:"range"`
	Parent *selectionRangeNode `json:"parent,omitempty"`
}

// buildSelectionRangeChain turns innermost-first ranges (as ide.Analysis
// returns them) into the editor protocol's parent-linked chain, outermost
// at the tail.
func buildSelectionRangeChain(lm *vfs.LineMap, content []byte, ranges []vfs.TextRange) *selectionRangeNode {
	var node *selectionRangeNode
	for i := len(ranges) - 1; i >= 0; i-- {
		node = &selectionRangeNode{Range: toRange(lm, content, ranges[i]), Parent: node}
	}
	return node
}

func (s *Server) handlePrepareRename(params any) (any, *rpcError) {
	file, _, pos, rpcErr := s.resolvePos(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.withAnalysis(file, func(a *ide.Analysis, lm *vfs.LineMap, content []byte) (any, *rpcError) {
		prep, err := a.PrepareRename(toFilePos(lm, content, file, pos))
		if err != nil {
			var renameErr *ide.RenameError
			if errors.As(err, &renameErr) {
				return nil, &rpcError{Code: codeInvalidRequest, Message: renameErr.Message}
			}
			return nil, queryError(err)
		}
		return map[string]any{
			"range":       toRange(lm, content, prep.Range),
			"placeholder": prep.Text,
		}, nil
	})
}

func (s *Server) handleRename(params any) (any, *rpcError) {
	file, uri, pos, rpcErr := s.resolvePos(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	newName, ok := jpString(params, "newName")
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: "rename: missing newName"}
	}
	return s.withAnalysis(file, func(a *ide.Analysis, lm *vfs.LineMap, content []byte) (any, *rpcError) {
		edit, err := a.Rename(toFilePos(lm, content, file, pos), newName)
		if err != nil {
			var renameErr *ide.RenameError
			if errors.As(err, &renameErr) {
				return nil, &rpcError{Code: codeInvalidRequest, Message: renameErr.Message}
			}
			return nil, queryError(err)
		}
		edits := edit.Edits[file]
		wire := make([]map[string]any, 0, len(edits))
		for _, e := range edits {
			wire = append(wire, map[string]any{
				"range":   toRange(lm, content, e.Range),
				"newText": e.NewText,
			})
		}
		return map[string]any{"changes": map[string]any{uri: wire}}, nil
	})
}

func (s *Server) handleHover(params any) (any, *rpcError) {
	file, _, pos, rpcErr := s.resolvePos(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.withAnalysis(file, func(a *ide.Analysis, lm *vfs.LineMap, content []byte) (any, *rpcError) {
		res, err := a.Hover(toFilePos(lm, content, file, pos))
		if err != nil {
			return nil, queryError(err)
		}
		if res == nil {
			return nil, nil
		}
		return map[string]any{
			"contents": map[string]any{"kind": "markdown", "value": res.Markdown},
			"range":    toRange(lm, content, res.Range),
		}, nil
	})
}
