// Package vocab holds the static configuration tables consulted by the query
// optimizer and expander: predicate type constraints, symmetric predicates,
// predicate synonyms, entity type expansion and ontology type rules.
//
// A Vocabulary is read-only after Prepare and safe for concurrent use.
package vocab

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// TypeConstraint lists the entity types a predicate accepts on each side.
type TypeConstraint struct {
	Subjects []string `yaml:"subjects"`
	Objects  []string `yaml:"objects"`
}

// OntologyRule maps ontology node ids of EntityType starting with Prefix to
// the semantic type they stand for.
type OntologyRule struct {
	EntityType    string `yaml:"entity_type"`
	Prefix        string `yaml:"prefix"`
	EffectiveType string `yaml:"effective_type"`
}

type Vocabulary struct {
	// AssociatedPredicate is the catch-all predicate that is never
	// canonicalized even though it is symmetric.
	AssociatedPredicate string                    `yaml:"associated_predicate"`
	PredicateTypes      map[string]TypeConstraint `yaml:"predicate_types"`
	SymmetricPredicates []string                  `yaml:"symmetric_predicates"`
	PredicateExpansion  map[string][]string       `yaml:"predicate_expansion"`
	EntityTypeExpansion map[string][]string       `yaml:"entity_type_expansion"`
	OntologyRules       []OntologyRule            `yaml:"ontology_rules"`

	symmetric map[string]struct{}
	prepared  bool
}

// Load decodes a YAML vocabulary and prepares it for use.
func Load(r io.Reader) (*Vocabulary, error) {
	v := &Vocabulary{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary: %w", err)
	}
	if err := v.Prepare(); err != nil {
		return nil, err
	}
	return v, nil
}

func LoadFile(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Prepare normalizes the tables and builds lookup sets. It must be called
// once before the vocabulary is shared.
func (v *Vocabulary) Prepare() error {
	if v.PredicateTypes == nil {
		v.PredicateTypes = map[string]TypeConstraint{}
	}
	if v.PredicateExpansion == nil {
		v.PredicateExpansion = map[string][]string{}
	}
	if v.EntityTypeExpansion == nil {
		v.EntityTypeExpansion = map[string][]string{}
	}

	for pred, c := range v.PredicateTypes {
		if pred == "" {
			return fmt.Errorf("predicate type constraint without predicate")
		}
		if len(c.Subjects) == 0 || len(c.Objects) == 0 {
			return fmt.Errorf("predicate %q: type constraint needs subject and object types", pred)
		}
	}

	v.symmetric = make(map[string]struct{}, len(v.SymmetricPredicates))
	for _, p := range v.SymmetricPredicates {
		v.symmetric[p] = struct{}{}
	}

	for _, r := range v.OntologyRules {
		if r.EntityType == "" || r.Prefix == "" || r.EffectiveType == "" {
			return fmt.Errorf("incomplete ontology rule %+v", r)
		}
	}
	// longest prefix wins
	slices.SortStableFunc(v.OntologyRules, func(a, b OntologyRule) int {
		return len(b.Prefix) - len(a.Prefix)
	})

	v.prepared = true
	return nil
}

func (v *Vocabulary) mustBePrepared() {
	if !v.prepared {
		panic("vocab: Vocabulary used before Prepare")
	}
}

func (v *Vocabulary) IsSymmetric(predicate string) bool {
	v.mustBePrepared()
	_, ok := v.symmetric[predicate]
	return ok
}

// IsAssociated reports whether predicate is the catch-all association.
func (v *Vocabulary) IsAssociated(predicate string) bool {
	return v.AssociatedPredicate != "" && predicate == v.AssociatedPredicate
}

func (v *Vocabulary) Constraint(predicate string) (TypeConstraint, bool) {
	c, ok := v.PredicateTypes[predicate]
	return c, ok
}

// Synonyms returns the predicates predicate expands to, without predicate
// itself.
func (v *Vocabulary) Synonyms(predicate string) []string {
	syns := v.PredicateExpansion[predicate]
	out := make([]string, 0, len(syns))
	for _, s := range syns {
		if s == predicate || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ExpandEntityType returns every concrete type a slot of type t matches,
// always including t itself.
func (v *Vocabulary) ExpandEntityType(t string) []string {
	out := []string{t}
	for _, e := range v.EntityTypeExpansion[t] {
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

// EffectiveType maps an entity to the semantic type it should be checked
// against. Ontology nodes are resolved through the prefix rules, every other
// entity keeps its own type.
func (v *Vocabulary) EffectiveType(id, entityType string) string {
	v.mustBePrepared()
	for _, r := range v.OntologyRules {
		if r.EntityType == entityType && strings.HasPrefix(id, r.Prefix) {
			return r.EffectiveType
		}
	}
	return entityType
}

// OrderSymmetricArguments is a total order over (id, type) pairs. It reports
// whether subject and object of a symmetric fact are in canonical orientation.
func OrderSymmetricArguments(subjectID, subjectType, objectID, objectType string) bool {
	if subjectID != objectID {
		return subjectID < objectID
	}
	return subjectType <= objectType
}
