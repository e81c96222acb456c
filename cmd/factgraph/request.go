package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/OFFIS-RIT/factgraph/pkg/query"

	"github.com/go-playground/validator"
	"github.com/spf13/cobra"
)

type requestFlags struct {
	file       string
	inline     string
	collection string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the query from a JSON file, - for stdin")
	cmd.Flags().StringVar(&f.inline, "json", "", "query as inline JSON")
	cmd.Flags().StringVarP(&f.collection, "collection", "c", "", "restrict results to one document collection")
	cmd.MarkFlagsMutuallyExclusive("file", "json")
}

// read decodes and validates the query given by --file or --json.
func (f *requestFlags) read(stdin io.Reader) (query.Request, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case f.inline != "":
		data = []byte(f.inline)
	case f.file == "-":
		data, err = io.ReadAll(stdin)
	case f.file != "":
		data, err = os.ReadFile(f.file)
	default:
		return query.Request{}, errors.New("either --file or --json is required")
	}
	if err != nil {
		return query.Request{}, fmt.Errorf("read query: %w", err)
	}

	var req query.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return query.Request{}, fmt.Errorf("decode query: %w", err)
	}
	if err := validator.New().Struct(req); err != nil {
		return query.Request{}, fmt.Errorf("invalid query: %w", err)
	}
	if f.collection != "" {
		req.Collection = f.collection
	}
	return req, nil
}
