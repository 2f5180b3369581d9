package lspglue

import (
	"math"

	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/vfs"
)

// effectiveMaxDiagnostics maps Config.MaxDiagnostics' "0 disables the cap"
// (SPEC_FULL.md §9 Open Question 2) onto ide.Analysis.Diagnostics' own
// contract, where a max <= 0 instead means "apply DefaultMaxDiagnostics" —
// so disabling the cap here means passing a max no real file will ever hit
// rather than passing 0 through unchanged.
func effectiveMaxDiagnostics(configured int) int {
	if configured == 0 {
		return math.MaxInt32
	}
	return configured
}

// publishDiagnostics re-evaluates diagnostics for every FileId Host.ApplyChange
// reported as touched and sends one publishDiagnostics notification per file
// — SPEC_FULL.md §9.1's "debounced to the latest revision only, per affected
// file" behavior, driven directly by the precise touched-set ApplyChange
// already computed rather than republishing the whole workspace.
func (s *Server) publishDiagnostics(touched []vfs.FileId) {
	if len(touched) == 0 {
		return
	}
	a, err := s.host.Snapshot()
	if err != nil {
		return
	}
	defer a.Close()

	for _, file := range touched {
		uri, ok := s.host.Vfs().URIForFile(file)
		if !ok {
			continue
		}
		lm, ok := s.host.Vfs().LineMapForFile(file)
		if !ok {
			continue
		}
		content, ok := s.host.Vfs().FileContent(file)
		if !ok {
			continue
		}
		diags, err := a.Diagnostics(file, effectiveMaxDiagnostics(s.cfg.MaxDiagnostics))
		if err != nil {
			continue
		}
		wire := make([]map[string]any, 0, len(diags))
		for _, d := range diags {
			wire = append(wire, diagnosticToWire(d, uri, lm, content))
		}
		s.Notify("textDocument/publishDiagnostics", map[string]any{
			"uri":         uri,
			"diagnostics": wire,
		})
	}
}

// diagnosticToWire renders d via internal/diagnostic's data/presentation
// split (Diagnostic.Render, backed by github.com/hashicorp/hcl/v2's
// Pos/Range/DiagnosticSeverity) and re-expresses the result in the editor
// protocol's own shape. hcl.DiagnosticSeverity and LSP's DiagnosticSeverity
// happen to share numeric values (1 = error, 2 = warning), so the severity
// carries across with no translation table.
func diagnosticToWire(d diagnostic.Diagnostic, uri string, lm *vfs.LineMap, content []byte) map[string]any {
	rd := d.Render("", lm, nil, nil)

	out := map[string]any{
		"range":    toRange(lm, content, d.Range),
		"severity": int(rd.HCL.Severity),
		"message":  rd.HCL.Summary,
		"source":   "attrls",
	}

	var tags []int
	if rd.Unnecessary {
		tags = append(tags, 1) // DiagnosticTag.Unnecessary
	}
	if rd.Deprecated {
		tags = append(tags, 2) // DiagnosticTag.Deprecated
	}
	if len(tags) > 0 {
		out["tags"] = tags
	}

	if len(rd.Notes) > 0 {
		related := make([]map[string]any, 0, len(rd.Notes))
		for _, n := range rd.Notes {
			noteRange := vfs.NewTextRange(vfs.Pos(n.Range.Start.Byte), vfs.Pos(n.Range.End.Byte))
			related = append(related, map[string]any{
				"message": n.Message,
				"location": map[string]any{
					"uri":   uri, // every note is same-file; references() stays file-local
					"range": toRange(lm, content, noteRange),
				},
			})
		}
		out["relatedInformation"] = related
	}
	return out
}
