package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/query"
)

type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// MinRequests and FailureRatio decide when the breaker opens.
	MinRequests  uint32
	FailureRatio float64
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "factstore",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      10 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// Breaker guards a Store with a circuit breaker. While the breaker is open
// calls fail immediately with query.ErrStoreUnavailable.
type Breaker struct {
	store Store
	cb    *gobreaker.CircuitBreaker
}

func NewBreaker(s Store, cfg BreakerConfig) *Breaker {
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about the store
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("[Store][Breaker] State changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{store: s, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %w", query.ErrStoreUnavailable, err)
		}
		return zero, err
	}
	return res.(T), nil
}

func (b *Breaker) Lookup(ctx context.Context, req LookupRequest) ([]InvertedIndexRecord, error) {
	return execute(b, func() ([]InvertedIndexRecord, error) {
		return b.store.Lookup(ctx, req)
	})
}

func (b *Breaker) FetchDocumentMetadata(ctx context.Context, collection string, docIDs []int64) (map[int64]query.DocumentMetadata, error) {
	return execute(b, func() (map[int64]query.DocumentMetadata, error) {
		return b.store.FetchDocumentMetadata(ctx, collection, docIDs)
	})
}

func (b *Breaker) FetchSentences(ctx context.Context, sentenceIDs []int64) (map[int64]string, error) {
	return execute(b, func() (map[int64]string, error) {
		return b.store.FetchSentences(ctx, sentenceIDs)
	})
}

func (b *Breaker) FetchProvenanceDetails(ctx context.Context, provenanceIDs []int64) ([]ProvenanceDetail, error) {
	return execute(b, func() ([]ProvenanceDetail, error) {
		return b.store.FetchProvenanceDetails(ctx, provenanceIDs)
	})
}

func (b *Breaker) Close() error {
	return b.store.Close()
}
