package optimizer

import (
	"slices"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
)

// typeSet is a set of allowed entity types, already widened through the
// entity type expansion table.
type typeSet map[string]struct{}

func (o *Optimizer) allowed(types []string) typeSet {
	s := make(typeSet)
	for _, t := range types {
		for _, x := range o.vocab.ExpandEntityType(t) {
			s[x] = struct{}{}
		}
	}
	return s
}

// fits reports whether e may occupy a slot restricted to allowed. Untyped
// variables match anything.
func (o *Optimizer) fits(e query.Entity, allowed typeSet) bool {
	if e.IsVariable() {
		if e.Var.Type == "" {
			return true
		}
		return slices.ContainsFunc(o.vocab.ExpandEntityType(e.Var.Type), func(t string) bool {
			_, ok := allowed[t]
			return ok
		})
	}
	_, ok := allowed[o.vocab.EffectiveType(e.ID, e.Type)]
	return ok
}

func (o *Optimizer) filter(entities []query.Entity, allowed typeSet) []query.Entity {
	var out []query.Entity
	for _, e := range entities {
		if o.fits(e, allowed) {
			out = append(out, e)
		}
	}
	return out
}

// resolveTypes checks p against the type constraint of its predicate. A
// pattern whose arguments are in the wrong order is flipped; otherwise
// entities of the wrong type are filtered out of both slots.
func (o *Optimizer) resolveTypes(p query.FactPattern) (query.FactPattern, string) {
	c, ok := o.vocab.Constraint(p.Predicate)
	if !ok {
		return p, ""
	}
	subjAllowed := o.allowed(c.Subjects)
	objAllowed := o.allowed(c.Objects)

	direct := query.FactPattern{
		Subjects:  o.filter(p.Subjects, subjAllowed),
		Predicate: p.Predicate,
		Objects:   o.filter(p.Objects, objAllowed),
	}
	if len(direct.Subjects) == len(p.Subjects) && len(direct.Objects) == len(p.Objects) {
		return p, ""
	}

	flipped := query.FactPattern{
		Subjects:  o.filter(p.Objects, subjAllowed),
		Predicate: p.Predicate,
		Objects:   o.filter(p.Subjects, objAllowed),
	}
	if len(flipped.Subjects) == len(p.Objects) && len(flipped.Objects) == len(p.Subjects) {
		query.RecordPatternFlipped(o.tracer, p)
		return flipped, ""
	}

	// Both orientations lose entities. Flip wins a tie on kept entities.
	directOK := len(direct.Subjects) > 0 && len(direct.Objects) > 0
	flippedOK := len(flipped.Subjects) > 0 && len(flipped.Objects) > 0
	switch {
	case flippedOK && (!directOK || kept(flipped) >= kept(direct)):
		query.RecordPatternFlipped(o.tracer, p)
		return flipped, ""
	case directOK:
		return direct, ""
	case len(direct.Subjects) == 0:
		return p, reasonNoSubjects
	default:
		return p, reasonNoObjects
	}
}

func kept(p query.FactPattern) int {
	return len(p.Subjects) + len(p.Objects)
}
