// Package store defines the read contract of the fact store: inverted index
// lookups by predicate and slot filter, plus the batch lookups used to attach
// document metadata and explain provenance.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
)

// SlotFilter restricts one side of a lookup. Entities matches exact (id,
// type) pairs, Types matches any entity of the listed types. The zero value
// matches everything.
type SlotFilter struct {
	Entities []query.Entity
	Types    []string
}

func (f SlotFilter) IsAny() bool {
	return len(f.Entities) == 0 && len(f.Types) == 0
}

type LookupRequest struct {
	Subject   SlotFilter
	Predicate string
	Object    SlotFilter
	// Collection limits provenance to one document collection. Empty means
	// all collections.
	Collection string
}

// ProvenanceMapping maps collection -> document id -> provenance ids.
type ProvenanceMapping map[string]map[int64][]int64

// ParseProvenanceMapping decodes the persisted JSON form
// {"collection": {"docId": [provenanceId, ...]}}.
func ParseProvenanceMapping(raw []byte) (ProvenanceMapping, error) {
	if len(raw) == 0 {
		return ProvenanceMapping{}, nil
	}
	var m ProvenanceMapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode provenance mapping: %w", err)
	}
	return m, nil
}

// Restrict returns the part of m belonging to collection. An empty
// collection returns m unchanged.
func (m ProvenanceMapping) Restrict(collection string) ProvenanceMapping {
	if collection == "" {
		return m
	}
	docs, ok := m[collection]
	if !ok {
		return ProvenanceMapping{}
	}
	return ProvenanceMapping{collection: docs}
}

// InvertedIndexRecord is one indexed fact together with the documents and
// extractions supporting it.
type InvertedIndexRecord struct {
	SubjectID   string
	SubjectType string
	Predicate   string
	ObjectID    string
	ObjectType  string
	Support     int
	Provenance  ProvenanceMapping
}

func (r InvertedIndexRecord) Subject() query.Entity {
	return query.Entity{ID: r.SubjectID, Type: r.SubjectType}
}

func (r InvertedIndexRecord) Object() query.Entity {
	return query.Entity{ID: r.ObjectID, Type: r.ObjectType}
}

// FactStore is the read side of the inverted fact index. Implementations
// must be safe for concurrent use.
type FactStore interface {
	Lookup(ctx context.Context, req LookupRequest) ([]InvertedIndexRecord, error)
}

// ProvenanceDetail describes a single extraction.
type ProvenanceDetail struct {
	ID         int64   `json:"id"`
	SentenceID int64   `json:"sentence_id"`
	Predicate  string  `json:"predicate"`
	Relation   string  `json:"relation"`
	SubjectStr string  `json:"subject_str"`
	ObjectStr  string  `json:"object_str"`
	Confidence float64 `json:"confidence"`
}

// DocumentStore serves the batch lookups used after query evaluation.
// Missing ids are left out of the results.
type DocumentStore interface {
	FetchDocumentMetadata(ctx context.Context, collection string, docIDs []int64) (map[int64]query.DocumentMetadata, error)
	FetchSentences(ctx context.Context, sentenceIDs []int64) (map[int64]string, error)
	FetchProvenanceDetails(ctx context.Context, provenanceIDs []int64) ([]ProvenanceDetail, error)
}

// Store is implemented by the database backed stores.
type Store interface {
	FactStore
	DocumentStore
	Close() error
}
