package query

import (
	"fmt"
	"slices"
	"strings"
)

// FactPattern is one (subjects, predicate, objects) clause. Subjects and
// Objects are alternatives for the same slot; matching any member suffices.
type FactPattern struct {
	Subjects  []Entity `json:"subjects"`
	Predicate string   `json:"predicate"`
	Objects   []Entity `json:"objects"`
}

// NewFactPattern validates a clause. A slot holding a variable must hold
// nothing else: a row matched through a concrete alternative would leave the
// variable unbound.
func NewFactPattern(subjects []Entity, predicate string, objects []Entity) (FactPattern, error) {
	predicate = strings.TrimSpace(predicate)
	if predicate == "" {
		return FactPattern{}, fmt.Errorf("fact pattern has no predicate")
	}
	if len(subjects) == 0 || len(objects) == 0 {
		return FactPattern{}, fmt.Errorf("fact pattern %q needs subjects and objects", predicate)
	}
	if err := checkSlot(subjects); err != nil {
		return FactPattern{}, fmt.Errorf("subjects of %q: %w", predicate, err)
	}
	if err := checkSlot(objects); err != nil {
		return FactPattern{}, fmt.Errorf("objects of %q: %w", predicate, err)
	}
	return FactPattern{
		Subjects:  slices.Clone(subjects),
		Predicate: predicate,
		Objects:   slices.Clone(objects),
	}, nil
}

func checkSlot(entities []Entity) error {
	if len(entities) < 2 {
		return nil
	}
	for _, e := range entities {
		if e.IsVariable() {
			return fmt.Errorf("%w: %s", ErrMixedVariableSlot, e.ID)
		}
	}
	return nil
}

// HasVariable reports whether any subject or object is a variable.
func (p FactPattern) HasVariable() bool {
	return p.VariableCount() > 0
}

// VariableCount counts variable entities on both sides.
func (p FactPattern) VariableCount() int {
	n := 0
	for _, e := range p.Subjects {
		if e.IsVariable() {
			n++
		}
	}
	for _, e := range p.Objects {
		if e.IsVariable() {
			n++
		}
	}
	return n
}

// SubjectVariable returns the variable bound to the subject slot, if any.
func (p FactPattern) SubjectVariable() (VariableRef, bool) {
	return slotVariable(p.Subjects)
}

// ObjectVariable returns the variable bound to the object slot, if any.
func (p FactPattern) ObjectVariable() (VariableRef, bool) {
	return slotVariable(p.Objects)
}

func slotVariable(entities []Entity) (VariableRef, bool) {
	for _, e := range entities {
		if e.IsVariable() {
			return e.Var, true
		}
	}
	return VariableRef{}, false
}

// Variables returns the distinct variable names of the pattern, subject
// first.
func (p FactPattern) Variables() []string {
	var names []string
	if v, ok := p.SubjectVariable(); ok {
		names = append(names, v.Name)
	}
	if v, ok := p.ObjectVariable(); ok && !slices.Contains(names, v.Name) {
		names = append(names, v.Name)
	}
	return names
}

// Flipped returns the pattern with subjects and objects swapped.
func (p FactPattern) Flipped() FactPattern {
	return FactPattern{
		Subjects:  slices.Clone(p.Objects),
		Predicate: p.Predicate,
		Objects:   slices.Clone(p.Subjects),
	}
}

// WithPredicate returns a copy of p using predicate.
func (p FactPattern) WithPredicate(predicate string) FactPattern {
	c := p.Clone()
	c.Predicate = predicate
	return c
}

func (p FactPattern) Clone() FactPattern {
	return FactPattern{
		Subjects:  slices.Clone(p.Subjects),
		Predicate: p.Predicate,
		Objects:   slices.Clone(p.Objects),
	}
}

// Key is an order independent encoding of the pattern. Two patterns with the
// same key match the same facts.
func (p FactPattern) Key() string {
	var b strings.Builder
	writeSlotKey(&b, p.Subjects)
	b.WriteString(" -")
	b.WriteString(p.Predicate)
	b.WriteString("-> ")
	writeSlotKey(&b, p.Objects)
	return b.String()
}

func writeSlotKey(b *strings.Builder, entities []Entity) {
	keys := make([]string, 0, len(entities))
	for _, e := range entities {
		keys = append(keys, e.String())
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)
	b.WriteString("{")
	b.WriteString(strings.Join(keys, ","))
	b.WriteString("}")
}

// Equal compares patterns with set semantics on both slots.
func (p FactPattern) Equal(o FactPattern) bool {
	return p.Key() == o.Key()
}

func (p FactPattern) String() string {
	return p.Key()
}
