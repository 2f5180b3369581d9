package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/attrlang/attrls/internal/diagnostic"
	"github.com/attrlang/attrls/internal/discovery"
	"github.com/attrlang/attrls/internal/host"
	"github.com/attrlang/attrls/internal/vfs"
)

var checkCmd = &cobra.Command{
	Use:   "check [directory]",
	Short: "Load a workspace and print its diagnostics, without starting the server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}

		h := host.New("")
		if err := h.Activate(); err != nil {
			return err
		}
		if _, _, err := discovery.Seed(h, discovery.DefaultOptions(abs)); err != nil {
			return fmt.Errorf("attrls check: %w", err)
		}

		files := h.Vfs().AllFiles()
		sort.Slice(files, func(i, j int) bool { return files[i] < files[j] })

		a, err := h.Snapshot()
		if err != nil {
			return err
		}
		defer a.Close()

		errCount := 0
		for _, file := range files {
			diags, err := a.Diagnostics(file, 0)
			if err != nil {
				return fmt.Errorf("attrls check: %w", err)
			}
			path, _ := h.Vfs().PathForFile(file)
			lm, _ := h.Vfs().LineMapForFile(file)
			for _, d := range diags {
				printDiagnostic(path.String(), lm, d)
				if d.Severity() == diagnostic.SeverityError {
					errCount++
				}
			}
		}

		if errCount > 0 {
			return fmt.Errorf("attrls check: %d error(s)", errCount)
		}
		return nil
	},
}

func printDiagnostic(path string, lm *vfs.LineMap, d diagnostic.Diagnostic) {
	lc := lm.OffsetToLineCol(d.Range.Start)
	severity := "warning"
	if d.Severity() == diagnostic.SeverityError {
		severity = "error"
	}
	fmt.Printf("%s:%d:%d: %s: %s\n", path, lc.Line+1, lc.Column+1, severity, d.Message())
}
