package engine

import (
	"slices"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
)

func newResult(
	collection string,
	doc int64,
	bindings map[string]query.Entity,
	provenance map[int][]int64,
	metadata map[string]map[int64]query.DocumentMetadata,
) query.DocumentResult {
	r := query.DocumentResult{
		DocumentID: doc,
		Collection: collection,
		Bindings:   bindings,
		Provenance: provenance,
	}
	if md, ok := metadata[collection][doc]; ok {
		r.Metadata = &md
	}
	return r
}

// assembleUnbound builds one row per valid document of a query without
// variables.
func assembleUnbound(
	matches []*patternMatches,
	valid collectionDocs,
	metadata map[string]map[int64]query.DocumentMetadata,
) []query.DocumentResult {
	var results []query.DocumentResult
	for collection, docs := range valid {
		for doc := range docs {
			prov := make(map[int][]int64, len(matches))
			for _, m := range matches {
				prov[m.index] = m.provenance.get(collection, doc).sorted()
			}
			results = append(results, newResult(collection, doc, nil, prov, metadata))
		}
	}
	return results
}

// assembleBound builds one row per document and consistent binding. The
// candidate bindings are the product of the surviving substitutions of every
// variable; combinations that no fact of a two-variable pattern supports are
// skipped.
func assembleBound(
	matches []*patternMatches,
	valid collectionDocs,
	surviving map[string]map[string]substitutions,
	variables []string,
	metadata map[string]map[int64]query.DocumentMetadata,
) []query.DocumentResult {
	var results []query.DocumentResult
	for collection, docs := range valid {
		for doc := range docs {
			candidates := make([][]query.Entity, len(variables))
			for k, name := range variables {
				candidates[k] = candidatesFor(surviving[name][collection], doc)
			}

			product(candidates, func(values []query.Entity) {
				bindings := make(map[string]query.Entity, len(variables))
				for k, name := range variables {
					bindings[name] = values[k]
				}
				prov, ok := rowProvenance(matches, collection, doc, bindings)
				if !ok {
					return
				}
				results = append(results, newResult(collection, doc, bindings, prov, metadata))
			})
		}
	}
	return results
}

func candidatesFor(subs substitutions, doc int64) []query.Entity {
	var out []query.Entity
	for value, docs := range subs {
		if docs.has(doc) {
			out = append(out, value)
		}
	}
	slices.SortFunc(out, func(a, b query.Entity) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// product calls fn for every combination picking one value per slot. fn must
// not retain values.
func product(slots [][]query.Entity, fn func(values []query.Entity)) {
	for _, s := range slots {
		if len(s) == 0 {
			return
		}
	}
	idx := make([]int, len(slots))
	values := make([]query.Entity, len(slots))
	for {
		for k, i := range idx {
			values[k] = slots[k][i]
		}
		fn(values)

		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(slots[k]) {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return
		}
	}
}

// rowProvenance collects the provenance of every pattern for one binding.
// Variable patterns contribute the provenance of the facts carrying exactly
// the bound values, other patterns their direct provenance.
func rowProvenance(
	matches []*patternMatches,
	collection string,
	doc int64,
	bindings map[string]query.Entity,
) (map[int][]int64, bool) {
	prov := make(map[int][]int64, len(matches))
	for _, m := range matches {
		if !m.hasVariables() {
			prov[m.index] = m.provenance.get(collection, doc).sorted()
			continue
		}
		var tuple bindingTuple
		for k, name := range m.variables {
			tuple[k] = bindings[name]
		}
		set, ok := m.bindingProv[collection][doc][tuple]
		if !ok {
			return nil, false
		}
		prov[m.index] = set.sorted()
	}
	return prov, true
}
