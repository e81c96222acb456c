package server

import (
	"strconv"
	"time"

	"github.com/OFFIS-RIT/factgraph/internal/util"
	"github.com/OFFIS-RIT/factgraph/pkg/store"
)

// Config holds everything read from the environment at startup.
type Config struct {
	Port string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	VocabPath  string
	VocabS3Key string
	S3Bucket   string

	QueryTimeout       time.Duration
	MaxLookups         int
	CacheSize          int
	CacheTTL           time.Duration
	Breaker            store.BreakerConfig
	StartupPingTries   int
	StartupPingBackoff time.Duration

	AuthURL        string
	MasterAPIKey   string
	MasterUserID   int32
	MasterUserRole string
}

func ConfigFromEnv() Config {
	breaker := store.DefaultBreakerConfig()
	breaker.Timeout = util.GetEnvDuration("BREAKER_TIMEOUT_S", time.Second, breaker.Timeout)
	breaker.Interval = util.GetEnvDuration("BREAKER_INTERVAL_S", time.Second, breaker.Interval)
	breaker.MinRequests = uint32(util.GetEnvNumeric("BREAKER_MIN_REQUESTS", int(breaker.MinRequests)))
	breaker.FailureRatio = util.GetEnvNumeric("BREAKER_FAILURE_RATIO", 0)
	if breaker.FailureRatio <= 0 || breaker.FailureRatio > 1 {
		breaker.FailureRatio = store.DefaultBreakerConfig().FailureRatio
	}

	masterUserID, _ := strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 32)

	return Config{
		Port: util.GetEnvString("PORT", "8080"),

		StoreDriver: util.GetEnvString("FACTSTORE_DRIVER", "postgres"),
		DatabaseURL: util.GetEnv("DATABASE_URL"),
		SQLitePath:  util.GetEnvString("SQLITE_PATH", "factgraph.db"),

		VocabPath:  util.GetEnv("VOCAB_PATH"),
		VocabS3Key: util.GetEnv("VOCAB_S3_KEY"),
		S3Bucket:   util.GetEnv("AWS_BUCKET"),

		QueryTimeout:       util.GetEnvDuration("QUERY_TIMEOUT_MS", time.Millisecond, 30*time.Second),
		MaxLookups:         int(util.GetEnvNumeric("QUERY_MAX_LOOKUPS", 8)),
		CacheSize:          int(util.GetEnvNumeric("QUERY_CACHE_SIZE", 256)),
		CacheTTL:           util.GetEnvDuration("QUERY_CACHE_TTL_S", time.Second, 5*time.Minute),
		Breaker:            breaker,
		StartupPingTries:   int(util.GetEnvNumeric("STARTUP_PING_TRIES", 5)),
		StartupPingBackoff: time.Second,

		AuthURL:        util.GetEnv("AUTH_URL"),
		MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
		MasterUserID:   int32(masterUserID),
		MasterUserRole: util.GetEnv("MASTER_USER_ROLE"),
	}
}
