package query

import "context"

// Executor evaluates optimized graph queries. An empty collection means
// every document collection.
type Executor interface {
	Execute(ctx context.Context, q *GraphQuery, collection string) ([]DocumentResult, error)
}
