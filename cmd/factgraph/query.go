package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/OFFIS-RIT/factgraph/internal/server"
	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/search"

	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	var (
		flags  requestFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Evaluate a graph query against the fact store",
		Example: `  factgraph query --json '{"patterns":[{"subjects":[{"id":"?X(Drug)"}],"predicate":"inhibits","objects":[{"id":"mtor","type":"Gene"}]}]}'
  factgraph query --file query.json --output json`,
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			app, closeApp, err := server.NewApp(ctx, server.ConfigFromEnv())
			if err != nil {
				return err
			}
			defer closeApp()

			resp, err := app.Search.Search(ctx, q, req.Collection)
			if err != nil {
				return err
			}
			return writeResponse(cmd.OutOrStdout(), resp, output)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	return cmd
}

func writeResponse(w io.Writer, resp *search.Response, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "table":
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	if resp.Unsatisfiable {
		fmt.Fprintln(w, "Query can never match: every orientation violates the predicate type constraints.")
		return nil
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tCOLLECTION\tBINDINGS\tPROVENANCE")
	for _, r := range resp.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.DocumentID, r.Collection, formatBindings(r), formatProvenance(r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d rows (request %s)\n", len(resp.Results), resp.RequestID)
	return nil
}

func formatBindings(r query.DocumentResult) string {
	if len(r.Bindings) == 0 {
		return "-"
	}
	return r.BindingKey()
}

func formatProvenance(r query.DocumentResult) string {
	idx := make([]int, 0, len(r.Provenance))
	for i := range r.Provenance {
		idx = append(idx, i)
	}
	slices.Sort(idx)

	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		ids := make([]string, len(r.Provenance[i]))
		for k, id := range r.Provenance[i] {
			ids[k] = fmt.Sprint(id)
		}
		parts = append(parts, fmt.Sprintf("%d:[%s]", i, strings.Join(ids, ",")))
	}
	return strings.Join(parts, " ")
}

