// Package expander derives the alternative patterns whose matches count as
// matches of a fact pattern: predicate synonyms and, for symmetric
// predicates, the reversed direction.
package expander

import (
	"slices"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/vocab"
)

type Expander struct {
	vocab *vocab.Vocabulary
}

func New(v *vocab.Vocabulary) *Expander {
	return &Expander{vocab: v}
}

// Expand returns the alternatives of p. The result never contains p itself
// and is empty when the predicate has no synonyms and is not symmetric.
func (e *Expander) Expand(p query.FactPattern) []query.FactPattern {
	synonyms := e.vocab.Synonyms(p.Predicate)
	symmetric := e.vocab.IsSymmetric(p.Predicate)
	if len(synonyms) == 0 && !symmetric {
		return nil
	}

	seen := map[string]struct{}{p.Key(): {}}
	var out []query.FactPattern
	add := func(alt query.FactPattern) {
		k := alt.Key()
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, alt)
	}

	for _, s := range synonyms {
		add(p.WithPredicate(s))
	}
	if symmetric {
		add(p.Flipped())
		for _, s := range synonyms {
			add(p.WithPredicate(s).Flipped())
		}
	}
	return out
}

// ExpandEntityTypes returns every concrete type matched by a slot restricted
// to types.
func (e *Expander) ExpandEntityTypes(types []string) []string {
	var out []string
	for _, t := range types {
		for _, x := range e.vocab.ExpandEntityType(t) {
			if !slices.Contains(out, x) {
				out = append(out, x)
			}
		}
	}
	slices.Sort(out)
	return out
}
