package engine

import (
	"slices"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/store"
)

// idSet holds document or provenance ids.
type idSet map[int64]struct{}

func (s idSet) add(ids ...int64) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func intersect(a, b idSet) idSet {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(idSet, len(a))
	for id := range a {
		if b.has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// collectionDocs maps a document collection to document ids.
type collectionDocs map[string]idSet

func (c collectionDocs) add(collection string, doc int64) {
	docs, ok := c[collection]
	if !ok {
		docs = make(idSet)
		c[collection] = docs
	}
	docs.add(doc)
}

func (c collectionDocs) count() int {
	n := 0
	for _, docs := range c {
		n += len(docs)
	}
	return n
}

// docProvenance maps collection -> document -> provenance ids.
type docProvenance map[string]map[int64]idSet

func (p docProvenance) add(collection string, doc int64, ids []int64) {
	docs, ok := p[collection]
	if !ok {
		docs = make(map[int64]idSet)
		p[collection] = docs
	}
	set, ok := docs[doc]
	if !ok {
		set = make(idSet)
		docs[doc] = set
	}
	set.add(ids...)
}

func (p docProvenance) get(collection string, doc int64) idSet {
	return p[collection][doc]
}

// substitutions maps a candidate variable value to the documents supporting
// it.
type substitutions map[query.Entity]idSet

// bindingTuple holds the values of a pattern's variables in the order of
// FactPattern.Variables.
type bindingTuple [2]query.Entity

// patternMatches is everything one pattern and its alternatives matched.
type patternMatches struct {
	index     int
	pattern   query.FactPattern
	variables []string

	// docs is the set of documents with at least one matching fact.
	docs collectionDocs
	// provenance is the direct provenance of every matched document.
	provenance docProvenance
	// subs maps variable -> collection -> substitution -> documents.
	subs map[string]map[string]substitutions
	// bindingProv maps collection -> document -> binding -> provenance ids.
	bindingProv map[string]map[int64]map[bindingTuple]idSet
}

func newPatternMatches(index int, p query.FactPattern) *patternMatches {
	return &patternMatches{
		index:       index,
		pattern:     p,
		variables:   p.Variables(),
		docs:        make(collectionDocs),
		provenance:  make(docProvenance),
		subs:        make(map[string]map[string]substitutions),
		bindingProv: make(map[string]map[int64]map[bindingTuple]idSet),
	}
}

func (m *patternMatches) hasVariables() bool {
	return len(m.variables) > 0
}

// merge adds the records returned for alt, one of the alternatives of the
// pattern. Records are merged with union semantics.
func (m *patternMatches) merge(alt query.FactPattern, req store.LookupRequest, records []store.InvertedIndexRecord) {
	sv, hasSubjectVar := alt.SubjectVariable()
	ov, hasObjectVar := alt.ObjectVariable()

	for _, r := range records {
		subject, object := r.Subject(), r.Object()
		if !accepts(req.Subject, subject) || !accepts(req.Object, object) {
			continue
		}

		var tuple bindingTuple
		if m.hasVariables() {
			bound := make(map[string]query.Entity, 2)
			if hasSubjectVar {
				bound[sv.Name] = subject
			}
			if hasObjectVar {
				if prev, ok := bound[ov.Name]; ok && prev != object {
					continue
				}
				bound[ov.Name] = object
			}
			for k, name := range m.variables {
				tuple[k] = bound[name]
			}
		}

		for collection, docs := range r.Provenance.Restrict(req.Collection) {
			for doc, prov := range docs {
				m.docs.add(collection, doc)
				m.provenance.add(collection, doc, prov)
				if !m.hasVariables() {
					continue
				}
				for k, name := range m.variables {
					m.addSubstitution(name, collection, tuple[k], doc)
				}
				m.addBindingProvenance(collection, doc, tuple, prov)
			}
		}
	}
}

func (m *patternMatches) addSubstitution(variable, collection string, value query.Entity, doc int64) {
	byCollection, ok := m.subs[variable]
	if !ok {
		byCollection = make(map[string]substitutions)
		m.subs[variable] = byCollection
	}
	subs, ok := byCollection[collection]
	if !ok {
		subs = make(substitutions)
		byCollection[collection] = subs
	}
	docs, ok := subs[value]
	if !ok {
		docs = make(idSet)
		subs[value] = docs
	}
	docs.add(doc)
}

func (m *patternMatches) addBindingProvenance(collection string, doc int64, tuple bindingTuple, prov []int64) {
	docs, ok := m.bindingProv[collection]
	if !ok {
		docs = make(map[int64]map[bindingTuple]idSet)
		m.bindingProv[collection] = docs
	}
	tuples, ok := docs[doc]
	if !ok {
		tuples = make(map[bindingTuple]idSet)
		docs[doc] = tuples
	}
	set, ok := tuples[tuple]
	if !ok {
		set = make(idSet)
		tuples[tuple] = set
	}
	set.add(prov...)
}

// accepts reports whether x passes f. Stores are expected to filter already;
// records outside the requested filter are ignored.
func accepts(f store.SlotFilter, x query.Entity) bool {
	switch {
	case len(f.Entities) > 0:
		return slices.Contains(f.Entities, x)
	case len(f.Types) > 0:
		return slices.Contains(f.Types, x.Type)
	default:
		return true
	}
}
