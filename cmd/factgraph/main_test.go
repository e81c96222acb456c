package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/search"
)

const reversedTreats = `{"patterns":[{"subjects":[{"id":"diabetes","type":"Disease"}],"predicate":"treats","objects":[{"id":"metformin","type":"Drug"}]}]}`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("VOCAB_PATH", "")
	t.Setenv("VOCAB_S3_KEY", "")

	cmd := rootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRequestFlagsRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.json")
	require.NoError(t, os.WriteFile(path, []byte(reversedTreats), 0o644))

	tests := []struct {
		name    string
		flags   requestFlags
		stdin   string
		wantErr string
	}{
		{name: "inline", flags: requestFlags{inline: reversedTreats}},
		{name: "file", flags: requestFlags{file: path}},
		{name: "stdin", flags: requestFlags{file: "-"}, stdin: reversedTreats},
		{name: "missing", flags: requestFlags{}, wantErr: "either --file or --json"},
		{name: "bad json", flags: requestFlags{inline: "{"}, wantErr: "decode query"},
		{name: "no patterns", flags: requestFlags{inline: `{"patterns":[]}`}, wantErr: "invalid query"},
		{name: "missing file", flags: requestFlags{file: filepath.Join(t.TempDir(), "nope.json")}, wantErr: "read query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.flags.read(strings.NewReader(tt.stdin))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, req.Patterns, 1)
			assert.Equal(t, "treats", req.Patterns[0].Predicate)
		})
	}
}

func TestRequestFlagsCollectionOverride(t *testing.T) {
	f := requestFlags{inline: `{"collection":"PMC","patterns":[{"subjects":[{"id":"?X"}],"predicate":"treats","objects":[{"id":"diabetes","type":"Disease"}]}]}`, collection: "PubMed"}
	req, err := f.read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "PubMed", req.Collection)
}

func TestOptimizeCommandFlipsPattern(t *testing.T) {
	out, err := run(t, "", "optimize", "--json", reversedTreats)
	require.NoError(t, err)

	var q query.GraphQuery
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	require.Len(t, q.Patterns, 1)
	assert.Equal(t, "metformin", q.Patterns[0].Subjects[0].ID)
	assert.Equal(t, "diabetes", q.Patterns[0].Objects[0].ID)
}

func TestOptimizeCommandUnsatisfiable(t *testing.T) {
	body := `{"patterns":[{"subjects":[{"id":"diabetes","type":"Disease"}],"predicate":"treats","objects":[{"id":"mtor","type":"Gene"}]}]}`
	out, err := run(t, "", "optimize", "--json", body)
	require.NoError(t, err)
	assert.Equal(t, "unsatisfiable\n", out)
}

func TestQueryCommandAgainstEmptySQLiteStore(t *testing.T) {
	t.Setenv("FACTSTORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", ":memory:")

	out, err := run(t, reversedTreats, "query", "--file", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestQueryCommandUnknownDriver(t *testing.T) {
	t.Setenv("FACTSTORE_DRIVER", "cassandra")

	_, err := run(t, "", "query", "--json", reversedTreats)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown fact store driver")
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := run(t, "", "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database URL")

	_, err = run(t, "", "migrate", "down", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--steps must be positive")
}

func TestRootRejectsUnknownLogFormat(t *testing.T) {
	_, err := run(t, "", "--log-format", "xml", "optimize", "--json", reversedTreats)
	require.Error(t, err)
}

func TestWriteResponseTable(t *testing.T) {
	resp := &search.Response{
		RequestID: "abc",
		Results: []query.DocumentResult{{
			DocumentID: 12,
			Collection: "PubMed",
			Bindings:   map[string]query.Entity{"X": query.MustEntity("metformin", "Drug")},
			Provenance: map[int][]int64{1: {7}, 0: {3, 5}},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeResponse(&buf, resp, "table"))

	out := buf.String()
	assert.Contains(t, out, "DOCUMENT")
	assert.Contains(t, out, "X=metformin:Drug")
	assert.Contains(t, out, "0:[3,5] 1:[7]")
	assert.Contains(t, out, "1 rows (request abc)")

	buf.Reset()
	require.NoError(t, writeResponse(&buf, &search.Response{Unsatisfiable: true}, "table"))
	assert.Contains(t, buf.String(), "never match")

	assert.Error(t, writeResponse(&buf, resp, "yaml"))
}
