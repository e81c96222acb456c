// Package explain resolves provenance ids of result rows into the
// extractions and sentences they came from.
package explain

import (
	"context"
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/store"
)

// Explanation is one extraction together with its source sentence.
type Explanation struct {
	store.ProvenanceDetail
	Sentence string `json:"sentence"`
}

type Builder struct {
	docs store.DocumentStore
}

func New(docs store.DocumentStore) *Builder {
	return &Builder{docs: docs}
}

// Explain fetches details and sentences for ids in two batch lookups. Ids
// without a stored extraction are skipped. The result is ordered by id.
func (b *Builder) Explain(ctx context.Context, provenanceIDs []int64) ([]Explanation, error) {
	ids := store.Dedupe(provenanceIDs)
	if len(ids) == 0 {
		return []Explanation{}, nil
	}

	details, err := b.docs.FetchProvenanceDetails(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch provenance details: %w", err)
	}

	sentenceIDs := make([]int64, 0, len(details))
	for _, d := range details {
		sentenceIDs = append(sentenceIDs, d.SentenceID)
	}
	sentences, err := b.docs.FetchSentences(ctx, sentenceIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch sentences: %w", err)
	}

	out := make([]Explanation, 0, len(details))
	for _, d := range details {
		out = append(out, Explanation{ProvenanceDetail: d, Sentence: sentences[d.SentenceID]})
	}
	slices.SortFunc(out, func(a, b Explanation) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	if len(out) < len(ids) {
		logger.Debug("[Explain] Some provenance ids have no extraction", "requested", len(ids), "found", len(out))
	}
	return out, nil
}

// ExplainResult explains every pattern of a result row. The map is keyed by
// pattern index like DocumentResult.Provenance.
func (b *Builder) ExplainResult(ctx context.Context, r query.DocumentResult) (map[int][]Explanation, error) {
	var all []int64
	for _, ids := range r.Provenance {
		all = append(all, ids...)
	}
	explanations, err := b.Explain(ctx, all)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]Explanation, len(explanations))
	for _, e := range explanations {
		byID[e.ID] = e
	}
	out := make(map[int][]Explanation, len(r.Provenance))
	for idx, ids := range r.Provenance {
		list := make([]Explanation, 0, len(ids))
		for _, id := range ids {
			if e, ok := byID[id]; ok {
				list = append(list, e)
			}
		}
		out[idx] = list
	}
	return out, nil
}
