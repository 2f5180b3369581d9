package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/attrlang/attrls/internal/host"
	"github.com/attrlang/attrls/internal/lspglue"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		h := host.New("file://")
		srv := lspglue.NewServer(h, os.Stdin, os.Stdout)
		if err := srv.Run(); err != nil {
			return fmt.Errorf("attrls serve: %w", err)
		}
		return nil
	},
}
