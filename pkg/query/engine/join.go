package engine

import "maps"

// joinDocuments intersects the matched documents of all patterns per
// collection. Collections without overlap are dropped.
func joinDocuments(matches []*patternMatches) collectionDocs {
	valid := make(collectionDocs)
	if len(matches) == 0 {
		return valid
	}
	for collection, docs := range matches[0].docs {
		valid[collection] = maps.Clone(docs)
	}
	for _, m := range matches[1:] {
		for collection, docs := range valid {
			docs = intersect(docs, m.docs[collection])
			if len(docs) == 0 {
				delete(valid, collection)
				continue
			}
			valid[collection] = docs
		}
	}
	return valid
}

// joinVariables keeps, per variable, the substitutions supported by the same
// document in every pattern referencing the variable. valid is narrowed to
// the documents that keep at least one substitution for every variable.
//
// The result maps variable -> collection -> substitution -> documents.
func joinVariables(matches []*patternMatches, valid collectionDocs) map[string]map[string]substitutions {
	refs := make(map[string][]*patternMatches)
	var order []string
	for _, m := range matches {
		for _, name := range m.variables {
			if _, ok := refs[name]; !ok {
				order = append(order, name)
			}
			refs[name] = append(refs[name], m)
		}
	}

	surviving := make(map[string]map[string]substitutions, len(order))
	for _, name := range order {
		byCollection := make(map[string]substitutions)
		for collection, docs := range valid {
			subs := joinSubstitutions(name, collection, refs[name], docs)

			supported := make(idSet)
			for _, d := range subs {
				for doc := range d {
					supported[doc] = struct{}{}
				}
			}
			docs = intersect(docs, supported)
			if len(docs) == 0 {
				delete(valid, collection)
				continue
			}
			valid[collection] = docs
			byCollection[collection] = subs
		}
		surviving[name] = byCollection
	}
	return surviving
}

// joinSubstitutions intersects the substitutions of variable name across
// refs, restricted to docs.
func joinSubstitutions(name, collection string, refs []*patternMatches, docs idSet) substitutions {
	out := make(substitutions)
	for value, d := range refs[0].subs[name][collection] {
		if d = intersect(d, docs); len(d) > 0 {
			out[value] = d
		}
	}
	for _, m := range refs[1:] {
		other := m.subs[name][collection]
		for value, d := range out {
			d = intersect(d, other[value])
			if len(d) == 0 {
				delete(out, value)
				continue
			}
			out[value] = d
		}
	}
	return out
}
