// Package optimizer normalizes raw graph queries into the canonical form the
// engine evaluates: duplicates removed, bound patterns first, predicate type
// constraints applied and symmetric patterns checked for canonical
// orientation.
//
// The optimizer may reject a query. A nil *query.GraphQuery from Optimize is
// the unsatisfiable signal and is an expected outcome of valid input.
package optimizer

import (
	"slices"

	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/vocab"
)

const (
	reasonNoSubjects   = "no subject satisfies the predicate type constraint"
	reasonNoObjects    = "no object satisfies the predicate type constraint"
	reasonNotCanonical = "symmetric pattern is not in canonical orientation"
	reasonEmptySlot    = "pattern has no subjects or objects"
)

type Optimizer struct {
	vocab  *vocab.Vocabulary
	tracer query.Tracer
}

type Option func(*Optimizer)

// WithTracer records rejected and flipped patterns on t.
func WithTracer(t query.Tracer) Option {
	return func(o *Optimizer) {
		o.tracer = t
	}
}

func New(v *vocab.Vocabulary, opts ...Option) *Optimizer {
	o := &Optimizer{vocab: v}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize dispatches on q.Mode. It returns nil when q cannot match.
func (o *Optimizer) Optimize(q *query.GraphQuery) *query.GraphQuery {
	if q == nil {
		return nil
	}
	if q.Mode == query.ModeOr {
		return o.OptimizeOr(q.Patterns)
	}
	return o.OptimizeAnd(q.Patterns)
}

// OptimizeAnd returns nil as soon as one pattern is unsatisfiable.
func (o *Optimizer) OptimizeAnd(patterns []query.FactPattern) *query.GraphQuery {
	return o.optimize(patterns, query.ModeAnd)
}

// OptimizeOr drops unsatisfiable patterns. The result is never nil but may
// hold no patterns.
func (o *Optimizer) OptimizeOr(patterns []query.FactPattern) *query.GraphQuery {
	return o.optimize(patterns, query.ModeOr)
}

func (o *Optimizer) optimize(patterns []query.FactPattern, mode query.Mode) *query.GraphQuery {
	candidates := dedupPatterns(patterns)
	slices.SortStableFunc(candidates, func(a, b query.FactPattern) int {
		return a.VariableCount() - b.VariableCount()
	})

	out := make([]query.FactPattern, 0, len(candidates))
	for _, p := range candidates {
		resolved, reason := o.resolve(p)
		if reason != "" {
			logger.Debug("[Optimizer] pattern rejected", "pattern", p.Key(), "reason", reason, "mode", mode.String())
			query.RecordPatternRejected(o.tracer, p, reason)
			if mode == query.ModeAnd {
				return nil
			}
			continue
		}
		out = append(out, resolved)
	}

	// flipping may turn two distinct patterns into the same one
	return query.NewGraphQuery(mode, dedupPatterns(out)...)
}

// resolve applies type constraint resolution and the symmetric canonical
// check to p. A non-empty reason means p is unsatisfiable.
func (o *Optimizer) resolve(p query.FactPattern) (query.FactPattern, string) {
	if len(p.Subjects) == 0 || len(p.Objects) == 0 {
		return p, reasonEmptySlot
	}

	resolved, reason := o.resolveTypes(p)
	if reason != "" {
		return p, reason
	}
	if !o.isCanonical(resolved) {
		return p, reasonNotCanonical
	}
	return resolved, ""
}

// Orient turns every symmetric single pair pattern into its canonical
// orientation. Patterns Optimize would reject as non-canonical are flipped
// instead, so callers can accept both argument orders from users.
func (o *Optimizer) Orient(q *query.GraphQuery) *query.GraphQuery {
	if q == nil {
		return nil
	}
	c := q.Clone()
	for i, p := range c.Patterns {
		if o.needsCanonicalCheck(p) && !o.isCanonical(p) {
			c.Patterns[i] = p.Flipped()
			query.RecordPatternFlipped(o.tracer, p)
		}
	}
	return c
}

func (o *Optimizer) needsCanonicalCheck(p query.FactPattern) bool {
	if !o.vocab.IsSymmetric(p.Predicate) || o.vocab.IsAssociated(p.Predicate) {
		return false
	}
	if len(p.Subjects) != 1 || len(p.Objects) != 1 {
		return false
	}
	return !p.Subjects[0].IsVariable() && !p.Objects[0].IsVariable()
}

func (o *Optimizer) isCanonical(p query.FactPattern) bool {
	if !o.needsCanonicalCheck(p) {
		return true
	}
	s, obj := p.Subjects[0], p.Objects[0]
	return vocab.OrderSymmetricArguments(s.ID, s.Type, obj.ID, obj.Type)
}

func dedupEntities(entities []query.Entity) []query.Entity {
	out := make([]query.Entity, 0, len(entities))
	seen := make(map[query.Entity]struct{}, len(entities))
	for _, e := range entities {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func dedupPatterns(patterns []query.FactPattern) []query.FactPattern {
	out := make([]query.FactPattern, 0, len(patterns))
	seen := make(map[string]struct{}, len(patterns))
	for _, p := range patterns {
		p = query.FactPattern{
			Subjects:  dedupEntities(p.Subjects),
			Predicate: p.Predicate,
			Objects:   dedupEntities(p.Objects),
		}
		k := p.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
