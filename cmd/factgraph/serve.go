package main

import (
	"github.com/OFFIS-RIT/factgraph/internal/server"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query API",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			server.Init()
		},
	}
}
