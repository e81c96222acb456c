package server

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/factgraph/internal/metrics"
	mid "github.com/OFFIS-RIT/factgraph/internal/server/middleware"
	"github.com/OFFIS-RIT/factgraph/internal/storage"
	"github.com/OFFIS-RIT/factgraph/internal/util"
	"github.com/OFFIS-RIT/factgraph/pkg/explain"
	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/query/engine"
	"github.com/OFFIS-RIT/factgraph/pkg/query/expander"
	"github.com/OFFIS-RIT/factgraph/pkg/query/optimizer"
	"github.com/OFFIS-RIT/factgraph/pkg/search"
	"github.com/OFFIS-RIT/factgraph/pkg/store"
	pgstore "github.com/OFFIS-RIT/factgraph/pkg/store/pgx"
	"github.com/OFFIS-RIT/factgraph/pkg/store/sqlite"
	"github.com/OFFIS-RIT/factgraph/pkg/vocab"
)

// PingStore is a Store that can report its reachability.
type PingStore interface {
	store.Store
	mid.Pinger
}

// OpenStore connects to the fact store selected by cfg.StoreDriver and
// waits until it answers a ping.
func OpenStore(ctx context.Context, cfg Config) (PingStore, error) {
	var (
		s   PingStore
		err error
	)
	switch cfg.StoreDriver {
	case "postgres", "pgx", "":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres fact store")
		}
		s, err = pgstore.NewFactDBStorage(ctx, cfg.DatabaseURL)
	case "sqlite":
		s, err = sqlite.Open(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown fact store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	err = util.RetryErrWithBackoff(ctx, cfg.StartupPingTries, cfg.StartupPingBackoff, func(ctx context.Context) error {
		if err := s.Ping(ctx); err != nil {
			logger.Warn("[Server] Fact store not reachable yet", "driver", cfg.StoreDriver, "err", err)
			return err
		}
		return nil
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("fact store ping: %w", err)
	}
	return s, nil
}

// LoadVocabulary reads the vocabulary from VOCAB_PATH, VOCAB_S3_KEY or
// falls back to the built-in default.
func LoadVocabulary(ctx context.Context, cfg Config) (*vocab.Vocabulary, error) {
	switch {
	case cfg.VocabPath != "":
		logger.Info("[Server] Loading vocabulary", "path", cfg.VocabPath)
		return vocab.LoadFile(cfg.VocabPath)
	case cfg.VocabS3Key != "":
		client := storage.NewS3Client(ctx)
		if client == nil {
			return nil, fmt.Errorf("failed to create S3 client")
		}
		return storage.LoadVocabulary(ctx, client, cfg.S3Bucket, cfg.VocabS3Key)
	default:
		return vocab.Default(), nil
	}
}

// NewApp wires store, vocabulary, engine and search service. The returned
// close function releases the store.
func NewApp(ctx context.Context, cfg Config) (*mid.App, func(), error) {
	collector := metrics.NewCollector()

	v, err := LoadVocabulary(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("load vocabulary: %w", err)
	}

	raw, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	guarded := store.NewBreaker(raw, cfg.Breaker)

	eng := engine.New(guarded, expander.New(v),
		engine.WithDocumentStore(guarded),
		engine.WithTimeout(cfg.QueryTimeout),
		engine.WithMaxConcurrentLookups(cfg.MaxLookups),
		engine.WithTracer(collector),
	)
	opt := optimizer.New(v, optimizer.WithTracer(collector))

	app := &mid.App{
		Search:         search.New(opt, eng, search.WithCache(cfg.CacheSize, cfg.CacheTTL)),
		Explain:        explain.New(guarded),
		Metrics:        collector,
		Store:          raw,
		MasterAPIKey:   cfg.MasterAPIKey,
		MasterUserID:   cfg.MasterUserID,
		MasterUserRole: cfg.MasterUserRole,
	}
	closeFn := func() {
		if err := guarded.Close(); err != nil {
			logger.Error("[Server] Failed to close fact store", "err", err)
		}
	}
	return app, closeFn, nil
}
