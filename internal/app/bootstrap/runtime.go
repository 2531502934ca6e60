package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/reflection-coach/internal/chat"
	appconfig "github.com/wolfman30/reflection-coach/internal/config"
	"github.com/wolfman30/reflection-coach/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool opens the check-in database, or returns nil when
// DATABASE_URL is unset.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// Stores groups the optional persistence components. Any field may be nil.
type Stores struct {
	Transcripts *chat.TranscriptStore
	Snapshots   *chat.SnapshotStore
	CheckIns    *chat.CheckInStore
	Publisher   *chat.CheckInPublisher
}

// Recorder returns the check-in recorder, or nil when neither Postgres nor
// SQS is configured.
func (s Stores) Recorder(logger *logging.Logger) *chat.Recorder {
	return chat.NewRecorder(s.CheckIns, s.Publisher, logger)
}

// BuildStores wires each store whose backing service is configured.
func BuildStores(cfg *appconfig.Config, awsCfg aws.Config, redisClient *redis.Client, pool *pgxpool.Pool, logger *logging.Logger) Stores {
	if logger == nil {
		logger = logging.Default()
	}
	var stores Stores
	if cfg == nil {
		return stores
	}

	if redisClient != nil {
		stores.Transcripts = chat.NewTranscriptStore(redisClient, cfg.TranscriptTTL)
		logger.Info("transcript store enabled", "ttl", cfg.TranscriptTTL.String())
	} else {
		logger.Info("redis not configured; transcript endpoints disabled")
	}

	if table := strings.TrimSpace(cfg.SnapshotTable); table != "" {
		stores.Snapshots = chat.NewSnapshotStore(dynamodb.NewFromConfig(awsCfg), table, logger)
		logger.Info("snapshot store enabled", "table", table)
	}

	if pool != nil {
		stores.CheckIns = chat.NewCheckInStore(pool)
		logger.Info("check-in store enabled")
	}

	if queueURL := strings.TrimSpace(cfg.CheckInQueueURL); queueURL != "" {
		stores.Publisher = chat.NewCheckInPublisher(sqs.NewFromConfig(awsCfg), queueURL)
		logger.Info("check-in events enabled", "queue_url", queueURL)
	}
	return stores
}
