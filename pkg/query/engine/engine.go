// Package engine evaluates optimized graph queries against a fact store.
//
// Every pattern is looked up together with its expander alternatives, the
// per-pattern document sets are intersected, shared variables are joined so
// that each result row carries one consistent binding, and the rows are
// returned with the provenance ids justifying each pattern.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/query/expander"
	"github.com/OFFIS-RIT/factgraph/pkg/store"
)

const defaultMaxConcurrentLookups = 8

type Engine struct {
	facts    store.FactStore
	docs     store.DocumentStore
	expander *expander.Expander

	timeout    time.Duration
	maxLookups int64
	tracer     query.Tracer
}

type Option func(*Engine)

// WithDocumentStore attaches document metadata to results.
func WithDocumentStore(docs store.DocumentStore) Option {
	return func(e *Engine) {
		e.docs = docs
	}
}

// WithTimeout bounds every Execute call. Zero disables the bound; the
// caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

func WithMaxConcurrentLookups(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLookups = int64(n)
		}
	}
}

func WithTracer(t query.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

func New(facts store.FactStore, exp *expander.Expander, opts ...Option) *Engine {
	e := &Engine{
		facts:      facts,
		expander:   exp,
		maxLookups: defaultMaxConcurrentLookups,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

var _ query.Executor = (*Engine)(nil)

// Execute evaluates an optimized query. collection restricts results to one
// document collection, empty means all. An empty query returns no rows
// without touching the store.
//
// Store failures are returned wrapped in query.ErrStoreUnavailable and an
// expired deadline as query.ErrTimeout. No partial results are returned.
func (e *Engine) Execute(ctx context.Context, q *query.GraphQuery, collection string) ([]query.DocumentResult, error) {
	if q.IsEmpty() {
		return []query.DocumentResult{}, nil
	}
	for i, p := range q.Patterns {
		if len(p.Subjects) == 0 || len(p.Objects) == 0 {
			panic(fmt.Sprintf("engine: pattern %d (%s) has an empty slot", i, p.Key()))
		}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	results, err := e.execute(ctx, q, collection)
	if err != nil {
		err = e.classify(ctx, err)
		query.RecordQueryExecuted(e.tracer, 0, 0, time.Since(start).Milliseconds(), err)
		return nil, err
	}

	docs := make(map[string]struct{})
	for _, r := range results {
		docs[fmt.Sprintf("%s/%d", r.Collection, r.DocumentID)] = struct{}{}
	}
	query.RecordQueryExecuted(e.tracer, len(docs), len(results), time.Since(start).Milliseconds(), nil)
	logger.Debug("[Engine][Execute] Query evaluated", "patterns", q.Len(), "documents", len(docs), "rows", len(results), "duration", time.Since(start))
	return results, nil
}

func (e *Engine) execute(ctx context.Context, q *query.GraphQuery, collection string) ([]query.DocumentResult, error) {
	matches, err := e.lookupAll(ctx, q, collection)
	if err != nil {
		return nil, err
	}

	valid := joinDocuments(matches)
	var surviving map[string]map[string]substitutions
	if q.HasVariables() {
		surviving = joinVariables(matches, valid)
	}
	if len(valid) == 0 {
		return []query.DocumentResult{}, nil
	}

	var metadata map[string]map[int64]query.DocumentMetadata
	if e.docs != nil {
		metadata, err = e.fetchMetadata(ctx, valid)
		if err != nil {
			return nil, err
		}
	}

	var results []query.DocumentResult
	if q.HasVariables() {
		results = assembleBound(matches, valid, surviving, q.Variables(), metadata)
	} else {
		results = assembleUnbound(matches, valid, metadata)
	}
	query.SortResults(results)
	return results, nil
}

// classify maps lookup failures to the query error kinds.
func (e *Engine) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", query.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, query.ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", query.ErrStoreUnavailable, err)
	}
}

type lookupTask struct {
	pattern int
	alt     query.FactPattern
	req     store.LookupRequest
	records []store.InvertedIndexRecord
}

// lookupAll runs the store lookups of every pattern and alternative
// concurrently and merges them per pattern once all have returned.
func (e *Engine) lookupAll(ctx context.Context, q *query.GraphQuery, collection string) ([]*patternMatches, error) {
	var tasks []*lookupTask
	for i, p := range q.Patterns {
		alts := append([]query.FactPattern{p}, e.expander.Expand(p)...)
		for _, alt := range alts {
			req := store.LookupRequest{
				Subject:    e.slotFilter(alt.Subjects),
				Predicate:  alt.Predicate,
				Object:     e.slotFilter(alt.Objects),
				Collection: collection,
			}
			if types := slices.Concat(req.Subject.Types, req.Object.Types); len(types) > 0 {
				query.RecordQueriedEntityTypes(e.tracer, types...)
			}
			tasks = append(tasks, &lookupTask{pattern: i, alt: alt, req: req})
		}
	}

	sem := semaphore.NewWeighted(e.maxLookups)
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			start := time.Now()
			records, err := e.facts.Lookup(gctx, task.req)
			query.RecordStoreLookup(e.tracer, task.req.Predicate, len(records), time.Since(start).Milliseconds(), err)
			if err != nil {
				logger.Error("[Engine][Lookup] Fact store lookup failed", "predicate", task.req.Predicate, "err", err)
				return err
			}
			task.records = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// a lookup may have returned just before the deadline
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := make([]*patternMatches, q.Len())
	for i, p := range q.Patterns {
		matches[i] = newPatternMatches(i, p)
	}
	for _, task := range tasks {
		matches[task.pattern].merge(task.alt, task.req, task.records)
	}
	for _, m := range matches {
		query.RecordPatternMatched(e.tracer, m.index, m.pattern, m.docs.count())
	}
	return matches, nil
}

// slotFilter turns a slot into a store filter. A variable slot is filtered by
// the expanded variable type, an untyped variable matches everything.
func (e *Engine) slotFilter(slot []query.Entity) store.SlotFilter {
	if len(slot) == 1 && slot[0].IsVariable() {
		if t := slot[0].Var.Type; t != "" {
			return store.SlotFilter{Types: e.expander.ExpandEntityTypes([]string{t})}
		}
		return store.SlotFilter{}
	}
	return store.SlotFilter{Entities: slot}
}

func (e *Engine) fetchMetadata(ctx context.Context, valid collectionDocs) (map[string]map[int64]query.DocumentMetadata, error) {
	out := make(map[string]map[int64]query.DocumentMetadata, len(valid))
	for collection, docs := range valid {
		m, err := e.docs.FetchDocumentMetadata(ctx, collection, docs.sorted())
		if err != nil {
			return nil, fmt.Errorf("fetch metadata for %s: %w", collection, err)
		}
		out[collection] = m
	}
	return out, nil
}
