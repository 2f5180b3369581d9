package diagnostic

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/attrlang/attrls/internal/vfs"
)

// RenderedNote is a RelatedNote with its range converted to line/column
// presentation form.
type RenderedNote struct {
	File    vfs.FileId
	Range   hcl.Range
	Message string
}

// RenderedDiagnostic is the presentation half: everything an editor adapter
// needs to build a protocol-level diagnostic, with positions expressed the
// way github.com/hashicorp/hcl/v2 already expresses them (Line/Column/Byte)
// instead of a hand-rolled position struct.
type RenderedDiagnostic struct {
	HCL         hcl.Diagnostic
	Unnecessary bool
	Deprecated  bool
	Notes       []RenderedNote
}

func toHCLRange(filename string, lm *vfs.LineMap, r vfs.TextRange) hcl.Range {
	start := lm.OffsetToLineCol(r.Start)
	end := lm.OffsetToLineCol(r.End)
	return hcl.Range{
		Filename: filename,
		Start:    hcl.Pos{Line: int(start.Line) + 1, Column: int(start.Column) + 1, Byte: int(r.Start)},
		End:      hcl.Pos{Line: int(end.Line) + 1, Column: int(end.Column) + 1, Byte: int(r.End)},
	}
}

func toHCLSeverity(s Severity) hcl.DiagnosticSeverity {
	switch s {
	case SeverityError:
		return hcl.DiagError
	default:
		// IncompleteSyntax and Warning both surface as a warning at the
		// protocol boundary; the distinction matters to internal ordering
		// and to tests, not to the editor.
		return hcl.DiagWarning
	}
}

// Render converts a Diagnostic to presentation form. filename is used only
// for hcl.Range.Filename (cosmetic — equality comparisons in this package
// never depend on it). noteFilenames maps each note's FileId to its
// display filename; notes for files missing from the map fall back to
// filename itself.
func (d Diagnostic) Render(filename string, lm *vfs.LineMap, noteFilenames map[vfs.FileId]string, noteLineMaps map[vfs.FileId]*vfs.LineMap) RenderedDiagnostic {
	subject := toHCLRange(filename, lm, d.Range)
	rendered := RenderedDiagnostic{
		HCL: hcl.Diagnostic{
			Severity: toHCLSeverity(d.Severity()),
			Summary:  d.Message(),
			Subject:  &subject,
		},
		Unnecessary: d.Unnecessary(),
		Deprecated:  d.Deprecated(),
	}
	for _, note := range d.Notes {
		nFilename := filename
		if f, ok := noteFilenames[note.File]; ok {
			nFilename = f
		}
		nLM := lm
		if m, ok := noteLineMaps[note.File]; ok {
			nLM = m
		}
		rendered.Notes = append(rendered.Notes, RenderedNote{
			File:    note.File,
			Range:   toHCLRange(nFilename, nLM, note.Range),
			Message: note.Message,
		})
	}
	return rendered
}
