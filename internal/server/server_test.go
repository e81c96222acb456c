package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/factgraph/internal/metrics"
	mid "github.com/OFFIS-RIT/factgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/factgraph/pkg/explain"
	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/query/engine"
	"github.com/OFFIS-RIT/factgraph/pkg/query/expander"
	"github.com/OFFIS-RIT/factgraph/pkg/query/optimizer"
	"github.com/OFFIS-RIT/factgraph/pkg/search"
	"github.com/OFFIS-RIT/factgraph/pkg/store"
	"github.com/OFFIS-RIT/factgraph/pkg/vocab"
)

const masterKey = "test-master-key"

type fakeStore struct {
	records []store.InvertedIndexRecord
	err     error
	pingErr error
}

func (f *fakeStore) Lookup(ctx context.Context, req store.LookupRequest) ([]store.InvertedIndexRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []store.InvertedIndexRecord
	for _, r := range f.records {
		if r.Predicate != req.Predicate {
			continue
		}
		if len(req.Subject.Entities) > 0 && !slices.Contains(req.Subject.Entities, r.Subject()) {
			continue
		}
		if len(req.Object.Entities) > 0 && !slices.Contains(req.Object.Entities, r.Object()) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) FetchDocumentMetadata(ctx context.Context, collection string, docIDs []int64) (map[int64]query.DocumentMetadata, error) {
	out := make(map[int64]query.DocumentMetadata)
	for _, id := range docIDs {
		out[id] = query.DocumentMetadata{Title: "Metformin in type 2 diabetes", Year: 2020}
	}
	return out, nil
}

func (f *fakeStore) FetchSentences(ctx context.Context, sentenceIDs []int64) (map[int64]string, error) {
	return map[int64]string{400: "Metformin treats type 2 diabetes."}, nil
}

func (f *fakeStore) FetchProvenanceDetails(ctx context.Context, provenanceIDs []int64) ([]store.ProvenanceDetail, error) {
	return []store.ProvenanceDetail{{ID: 40, SentenceID: 400, Predicate: "treats", SubjectStr: "Metformin", ObjectStr: "type 2 diabetes"}}, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	return f.pingErr
}

func newTestServer(t *testing.T, fs *fakeStore) (*httptest.Server, *mid.App) {
	t.Helper()
	v := vocab.Default()
	collector := metrics.NewCollector()
	eng := engine.New(fs, expander.New(v), engine.WithDocumentStore(fs), engine.WithTracer(collector))
	app := &mid.App{
		Search:         search.New(optimizer.New(v, optimizer.WithTracer(collector)), eng),
		Explain:        explain.New(fs),
		Metrics:        collector,
		Store:          fs,
		MasterAPIKey:   masterKey,
		MasterUserID:   1,
		MasterUserRole: "admin",
	}
	srv := httptest.NewServer(NewEcho(app))
	t.Cleanup(srv.Close)
	return srv, app
}

func treatsStore() *fakeStore {
	return &fakeStore{records: []store.InvertedIndexRecord{{
		SubjectID:   "metformin",
		SubjectType: "Drug",
		Predicate:   "treats",
		ObjectID:    "diabetes",
		ObjectType:  "Disease",
		Support:     1,
		Provenance:  store.ProvenanceMapping{"PubMed": {4: {40}}},
	}}}
}

func post(t *testing.T, srv *httptest.Server, path, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

const treatsQuery = `{"patterns":[{"subjects":[{"id":"metformin","type":"Drug"}],"predicate":"treats","objects":[{"id":"diabetes","type":"Disease"}]}]}`

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		want    int
	}{
		{name: "reachable", want: http.StatusOK},
		{name: "unreachable", pingErr: errors.New("connection refused"), want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeStore{pingErr: tt.pingErr})
			resp, err := http.Get(srv.URL + "/health")
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestQueryRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, treatsStore())

	if resp := post(t, srv, "/api/query", "", treatsQuery); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	// no JWKS configured, so any other token is rejected
	if resp := post(t, srv, "/api/query", "not-the-key", treatsQuery); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", resp.StatusCode)
	}
}

func TestQuery(t *testing.T) {
	srv, _ := newTestServer(t, treatsStore())

	resp := post(t, srv, "/api/query", masterKey, treatsQuery)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body search.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.RequestID == "" {
		t.Fatal("expected a request id")
	}
	if len(body.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(body.Results))
	}
	r := body.Results[0]
	if r.DocumentID != 4 || r.Collection != "PubMed" {
		t.Fatalf("unexpected result %+v", r)
	}
	if r.Metadata == nil || r.Metadata.Year != 2020 {
		t.Fatalf("expected metadata, got %+v", r.Metadata)
	}
	if got := r.Provenance[0]; len(got) != 1 || got[0] != 40 {
		t.Fatalf("expected provenance [40], got %v", got)
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
		body  string
		want  int
	}{
		{
			name:  "malformed variable",
			store: treatsStore(),
			body:  `{"patterns":[{"subjects":[{"id":"?X(Drug"}],"predicate":"treats","objects":[{"id":"diabetes","type":"Disease"}]}]}`,
			want:  http.StatusBadRequest,
		},
		{
			name:  "mixed slot",
			store: treatsStore(),
			body:  `{"patterns":[{"subjects":[{"id":"?X"},{"id":"metformin","type":"Drug"}],"predicate":"treats","objects":[{"id":"diabetes","type":"Disease"}]}]}`,
			want:  http.StatusBadRequest,
		},
		{
			name:  "no patterns",
			store: treatsStore(),
			body:  `{"patterns":[]}`,
			want:  http.StatusBadRequest,
		},
		{
			name:  "unknown mode",
			store: treatsStore(),
			body:  `{"mode":"xor","patterns":[{"subjects":[{"id":"metformin","type":"Drug"}],"predicate":"treats","objects":[{"id":"diabetes","type":"Disease"}]}]}`,
			want:  http.StatusBadRequest,
		},
		{
			name:  "store failure",
			store: &fakeStore{err: errors.New("connection refused")},
			body:  treatsQuery,
			want:  http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.store)
			if resp := post(t, srv, "/api/query", masterKey, tt.body); resp.StatusCode != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestOptimize(t *testing.T) {
	srv, _ := newTestServer(t, treatsStore())

	// Disease treats Drug is flipped into Drug treats Disease
	body := `{"patterns":[{"subjects":[{"id":"diabetes","type":"Disease"}],"predicate":"treats","objects":[{"id":"metformin","type":"Drug"}]}]}`
	resp := post(t, srv, "/api/query/optimize", masterKey, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Query         *query.GraphQuery `json:"query"`
		Unsatisfiable bool              `json:"unsatisfiable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.Unsatisfiable || out.Query == nil || len(out.Query.Patterns) != 1 {
		t.Fatalf("unexpected response %+v", out)
	}
	if got := out.Query.Patterns[0].Subjects[0].ID; got != "metformin" {
		t.Fatalf("expected flipped subject metformin, got %s", got)
	}
	if out.Query.Mode != query.ModeAnd {
		t.Fatalf("expected and mode, got %s", out.Query.Mode)
	}
}

func TestOptimizeKeepsOrMode(t *testing.T) {
	srv, _ := newTestServer(t, treatsStore())

	body := `{"mode":"or","patterns":[{"subjects":[{"id":"metformin","type":"Drug"}],"predicate":"treats","objects":[{"id":"diabetes","type":"Disease"}]}]}`
	resp := post(t, srv, "/api/query/optimize", masterKey, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Query map[string]any `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got := out.Query["mode"]; got != "or" {
		t.Fatalf("expected mode or, got %v", got)
	}
}

func TestOptimizeUnsatisfiable(t *testing.T) {
	srv, _ := newTestServer(t, treatsStore())

	body := `{"patterns":[{"subjects":[{"id":"diabetes","type":"Disease"}],"predicate":"treats","objects":[{"id":"mtor","type":"Gene"}]}]}`
	resp := post(t, srv, "/api/query/optimize", masterKey, body)
	var out struct {
		Unsatisfiable bool `json:"unsatisfiable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !out.Unsatisfiable {
		t.Fatal("expected unsatisfiable query")
	}
}

func TestExplain(t *testing.T) {
	srv, _ := newTestServer(t, treatsStore())

	resp := post(t, srv, "/api/query/explain", masterKey, `{"provenance_ids":[40]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Explanations []explain.Explanation `json:"explanations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out.Explanations) != 1 || out.Explanations[0].Sentence != "Metformin treats type 2 diabetes." {
		t.Fatalf("unexpected explanations %+v", out.Explanations)
	}

	if resp := post(t, srv, "/api/query/explain", masterKey, `{"provenance_ids":[]}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ids, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, treatsStore())
	post(t, srv, "/api/query", masterKey, treatsQuery)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(data), `factgraph_queries_total{result="ok"} 1`) {
		t.Fatalf("expected query counter in metrics output")
	}
}
