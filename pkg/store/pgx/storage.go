package pgx

import (
	"context"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxIConn interface {
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// FactDBStorage implements store.Store on PostgreSQL. The inverted index
// keeps its provenance mapping in a JSONB column.
type FactDBStorage struct {
	conn      pgxIConn
	pool      *pgxpool.Pool
	chunkSize int
}

type FactDBStorageOption func(*FactDBStorage)

// WithChunkSize sets how many ids are sent per batch lookup.
func WithChunkSize(n int) FactDBStorageOption {
	return func(s *FactDBStorage) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// NewFactDBStorage opens a connection pool for dsn.
func NewFactDBStorage(ctx context.Context, dsn string, opts ...FactDBStorageOption) (*FactDBStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	s := NewFactDBStorageWithConnection(pool, opts...)
	s.pool = pool
	return s, nil
}

// NewFactDBStorageWithConnection uses an existing connection or pool. The
// caller keeps ownership of conn.
func NewFactDBStorageWithConnection(conn pgxIConn, opts ...FactDBStorageOption) *FactDBStorage {
	s := &FactDBStorage{
		conn:      conn,
		chunkSize: 1000,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

func (s *FactDBStorage) Ping(ctx context.Context) error {
	var one int
	return s.conn.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (s *FactDBStorage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
