package explain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/store"
)

type stubDocs struct {
	details   map[int64]store.ProvenanceDetail
	sentences map[int64]string
	err       error
	requested [][]int64
}

func (s *stubDocs) FetchDocumentMetadata(ctx context.Context, collection string, docIDs []int64) (map[int64]query.DocumentMetadata, error) {
	return nil, nil
}

func (s *stubDocs) FetchSentences(ctx context.Context, sentenceIDs []int64) (map[int64]string, error) {
	out := make(map[int64]string)
	for _, id := range sentenceIDs {
		if text, ok := s.sentences[id]; ok {
			out[id] = text
		}
	}
	return out, nil
}

func (s *stubDocs) FetchProvenanceDetails(ctx context.Context, provenanceIDs []int64) ([]store.ProvenanceDetail, error) {
	s.requested = append(s.requested, provenanceIDs)
	if s.err != nil {
		return nil, s.err
	}
	var out []store.ProvenanceDetail
	for _, id := range provenanceIDs {
		if d, ok := s.details[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func newStub() *stubDocs {
	return &stubDocs{
		details: map[int64]store.ProvenanceDetail{
			10: {ID: 10, SentenceID: 100, Predicate: "inhibits", SubjectStr: "Simvastatin", ObjectStr: "mTOR", Confidence: 0.9},
			11: {ID: 11, SentenceID: 100, Predicate: "blocks", Relation: "inhibits", SubjectStr: "simvastatin", ObjectStr: "mTOR"},
			20: {ID: 20, SentenceID: 200, Predicate: "metabolises", SubjectStr: "CYP3A4", ObjectStr: "simvastatin"},
		},
		sentences: map[int64]string{
			100: "Simvastatin inhibits mTOR signalling.",
			200: "CYP3A4 metabolises simvastatin.",
		},
	}
}

func TestExplain(t *testing.T) {
	docs := newStub()
	b := New(docs)

	got, err := b.Explain(context.Background(), []int64{20, 10, 10, 99})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].ID)
	assert.Equal(t, "Simvastatin inhibits mTOR signalling.", got[0].Sentence)
	assert.Equal(t, "CYP3A4 metabolises simvastatin.", got[1].Sentence)
	assert.Equal(t, [][]int64{{10, 20, 99}}, docs.requested)
}

func TestExplainEmpty(t *testing.T) {
	docs := newStub()
	got, err := New(docs).Explain(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, docs.requested)
}

func TestExplainResult(t *testing.T) {
	b := New(newStub())
	r := query.DocumentResult{
		DocumentID: 3,
		Collection: "PubMed",
		Provenance: map[int][]int64{0: {10, 11}, 1: {20}},
	}

	got, err := b.ExplainResult(context.Background(), r)

	require.NoError(t, err)
	require.Len(t, got[0], 2)
	assert.Equal(t, "blocks", got[0][1].Predicate)
	require.Len(t, got[1], 1)
	assert.Equal(t, "CYP3A4", got[1][0].SubjectStr)
}

func TestExplainStoreError(t *testing.T) {
	docs := newStub()
	docs.err = errors.New("boom")

	_, err := New(docs).Explain(context.Background(), []int64{10})
	assert.Error(t, err)
}

func TestExplainKeepsZeroID(t *testing.T) {
	docs := newStub()
	docs.details[0] = store.ProvenanceDetail{ID: 0, SentenceID: 0, Predicate: "treats", SubjectStr: "metformin", ObjectStr: "diabetes"}
	docs.sentences[0] = "Metformin treats diabetes."

	got, err := New(docs).Explain(context.Background(), []int64{10, 0})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(0), got[0].ID)
	assert.Equal(t, "Metformin treats diabetes.", got[0].Sentence)
	assert.Equal(t, [][]int64{{0, 10}}, docs.requested)
}
