package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
)

type failingStore struct {
	err   error
	calls int
}

func (f *failingStore) Lookup(ctx context.Context, req LookupRequest) ([]InvertedIndexRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []InvertedIndexRecord{{SubjectID: "a", Predicate: req.Predicate, ObjectID: "b"}}, nil
}

func (f *failingStore) FetchDocumentMetadata(ctx context.Context, collection string, docIDs []int64) (map[int64]query.DocumentMetadata, error) {
	f.calls++
	return nil, f.err
}

func (f *failingStore) FetchSentences(ctx context.Context, sentenceIDs []int64) (map[int64]string, error) {
	f.calls++
	return map[int64]string{1: "text"}, f.err
}

func (f *failingStore) FetchProvenanceDetails(ctx context.Context, provenanceIDs []int64) ([]ProvenanceDetail, error) {
	f.calls++
	return nil, f.err
}

func (f *failingStore) Close() error { return nil }

func TestChunkRange(t *testing.T) {
	var got [][2]int
	err := ChunkRange(7, 3, func(start, end int) error {
		got = append(got, [2]int{start, end})
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][2]int{{0, 3}, {3, 6}, {6, 7}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	calls := 0
	_ = ChunkRange(0, 3, func(start, end int) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Fatalf("expected no calls for empty range, got %d", calls)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]int64{5, 0, 3, 5, 1, 3, 0})
	if !reflect.DeepEqual(got, []int64{0, 1, 3, 5}) {
		t.Fatalf("expected [0 1 3 5], got %v", got)
	}
	if Dedupe([]string(nil)) != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestParseProvenanceMapping(t *testing.T) {
	m, err := ParseProvenanceMapping([]byte(`{"PubMed": {"12": [3, 4]}, "PMC": {"9": []}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := ProvenanceMapping{"PubMed": {12: {3, 4}}, "PMC": {9: {}}}
	if !reflect.DeepEqual(m, want) {
		t.Fatalf("expected %v, got %v", want, m)
	}

	if got := m.Restrict("PubMed"); !reflect.DeepEqual(got, ProvenanceMapping{"PubMed": {12: {3, 4}}}) {
		t.Fatalf("unexpected restricted mapping %v", got)
	}
	if got := m.Restrict("other"); len(got) != 0 {
		t.Fatalf("expected empty mapping, got %v", got)
	}

	if _, err := ParseProvenanceMapping([]byte(`{"PubMed": {"x": [1]}}`)); err == nil {
		t.Fatalf("expected error for non numeric document id")
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	inner := &failingStore{err: errors.New("connection refused")}
	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 2
	cfg.FailureRatio = 0.5
	cfg.Timeout = time.Hour
	b := NewBreaker(inner, cfg)

	for range 2 {
		_, err := b.Lookup(context.Background(), LookupRequest{Predicate: "treats"})
		if err == nil || errors.Is(err, query.ErrStoreUnavailable) {
			t.Fatalf("expected inner error, got %v", err)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", b.State())
	}

	_, err := b.FetchSentences(context.Background(), []int64{1})
	if !errors.Is(err, query.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected open breaker to skip the store, got %d calls", inner.calls)
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	inner := &failingStore{err: context.Canceled}
	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 1
	b := NewBreaker(inner, cfg)

	for range 3 {
		_, _ = b.Lookup(context.Background(), LookupRequest{Predicate: "treats"})
	}
	if b.State() != gobreaker.StateClosed {
		t.Fatalf("expected closed breaker, got %s", b.State())
	}

	inner.err = nil
	records, err := b.Lookup(context.Background(), LookupRequest{Predicate: "treats"})
	if err != nil || len(records) != 1 || records[0].Predicate != "treats" {
		t.Fatalf("unexpected result %v, %v", records, err)
	}
}
