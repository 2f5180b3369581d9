// Command attrls is the language server binary (SPEC_FULL.md §6): a
// `serve` subcommand speaking Content-Length-framed JSON-RPC over stdio, a
// `check` subcommand for CI-style one-shot diagnostics, and `version`.
//
// Grounded on the teacher's cmd/mount.go root-command shape (a
// spf13/cobra root command carrying global flags, subcommands added via
// init), adapted from a single do-everything root command to a handful of
// small subcommands since this binary's surface is a server plus a couple
// of diagnostic utilities rather than one big mount operation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version, Commit, and Date are overwritten at build time via -ldflags, the
// same convention the teacher's mount.go uses.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "attrls",
	Short:   "attrls: a language server for attribute configuration files",
	Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date),
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("attrls version %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
