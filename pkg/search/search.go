// Package search is the entry point used by the HTTP API and the CLI. It
// orients symmetric patterns, optimizes the query, executes it and caches
// the rows of recent queries.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/query/optimizer"
)

// Response is the outcome of one search. Results may be shared with other
// callers through the cache and must not be modified.
type Response struct {
	RequestID     string                 `json:"request_id"`
	Query         *query.GraphQuery      `json:"query,omitempty"`
	Unsatisfiable bool                   `json:"unsatisfiable"`
	Cached        bool                   `json:"cached"`
	Results       []query.DocumentResult `json:"results"`
}

type Service struct {
	optimizer *optimizer.Optimizer
	executor  query.Executor

	cache *expirable.LRU[string, []query.DocumentResult]
	group singleflight.Group
}

type Option func(*Service)

// WithCache keeps the rows of up to size queries for ttl. A size of zero
// disables caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		if size <= 0 {
			s.cache = nil
			return
		}
		s.cache = expirable.NewLRU[string, []query.DocumentResult](size, nil, ttl)
	}
}

func New(opt *optimizer.Optimizer, exec query.Executor, opts ...Option) *Service {
	s := &Service{
		optimizer: opt,
		executor:  exec,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Optimize orients and optimizes q. It returns query.ErrUnsatisfiableQuery
// when q cannot match.
func (s *Service) Optimize(q *query.GraphQuery) (*query.GraphQuery, error) {
	optimized := s.optimizer.Optimize(s.optimizer.Orient(q))
	if optimized == nil {
		return nil, query.ErrUnsatisfiableQuery
	}
	return optimized, nil
}

// Search runs q restricted to collection (empty for all). An unsatisfiable
// query is not an error; the response is flagged and holds no rows.
func (s *Service) Search(ctx context.Context, q *query.GraphQuery, collection string) (*Response, error) {
	requestID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	resp := &Response{RequestID: requestID, Results: []query.DocumentResult{}}

	optimized, err := s.Optimize(q)
	if err != nil {
		logger.Debug("[Search] Query rejected by optimizer", "request_id", requestID, "query", q.String(), "err", err)
		resp.Unsatisfiable = true
		return resp, nil
	}
	resp.Query = optimized
	if optimized.IsEmpty() {
		return resp, nil
	}

	key := cacheKey(optimized, collection)
	if s.cache != nil {
		if rows, ok := s.cache.Get(key); ok {
			resp.Results = rows
			resp.Cached = true
			logger.Debug("[Search] Served from cache", "request_id", requestID, "rows", len(rows))
			return resp, nil
		}
	}

	start := time.Now()
	// the shared execution outlives any single caller; the engine timeout
	// still bounds it
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		rows, err := s.executor.Execute(detached, optimized, collection)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Add(key, rows)
		}
		return rows, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", query.ErrTimeout, err)
		}
		logger.Debug("[Search] Caller left before the query finished", "request_id", requestID, "err", err)
		return nil, fmt.Errorf("search %s: %w", requestID, err)
	case res = <-ch:
	}
	if res.Err != nil {
		logger.Error("[Search] Query failed", "request_id", requestID, "query", optimized.String(), "err", res.Err)
		return nil, fmt.Errorf("search %s: %w", requestID, res.Err)
	}

	resp.Results = res.Val.([]query.DocumentResult)
	logger.Info("[Search] Query executed",
		"request_id", requestID,
		"patterns", optimized.Len(),
		"collection", collection,
		"rows", len(resp.Results),
		"shared", res.Shared,
		"duration", time.Since(start),
	)
	return resp, nil
}

func cacheKey(q *query.GraphQuery, collection string) string {
	return collection + "\x00" + q.Key()
}
