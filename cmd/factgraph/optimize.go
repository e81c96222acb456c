package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/factgraph/internal/server"
	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/query/optimizer"
	"github.com/OFFIS-RIT/factgraph/pkg/search"

	"github.com/spf13/cobra"
)

func optimizeCmd() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Print a query as the engine would evaluate it",
		Long: `Orients symmetric patterns, flips patterns written against the predicate
type constraints and drops duplicates. The fact store is not contacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			q, err := req.Build()
			if err != nil {
				return err
			}

			v, err := server.LoadVocabulary(cmd.Context(), server.ConfigFromEnv())
			if err != nil {
				return err
			}
			// Optimize does not touch the executor
			optimized, err := search.New(optimizer.New(v), nil).Optimize(q)
			if errors.Is(err, query.ErrUnsatisfiableQuery) {
				fmt.Fprintln(cmd.OutOrStdout(), "unsatisfiable")
				return nil
			}
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(optimized, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal query: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
