package runstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// DefaultKeyPrefix namespaces run id keys in Redis.
const DefaultKeyPrefix = "batch"

// RedisConfig holds configuration for the Redis client.
type RedisConfig struct {
	Addr      string `yaml:"addr"`     // e.g., "localhost:6379"
	Password  string `yaml:"password"` // Leave empty if no password
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// RedisRunIDIncrementer implements batch.RunIDIncrementer with Redis INCR,
// so run ids keep increasing across process restarts and across processes
// sharing the same Redis.
type RedisRunIDIncrementer struct {
	client     *redis.Client
	key        string
	ownsClient bool
	logger     zerolog.Logger
}

// NewRedisRunIDIncrementer connects to Redis and returns an incrementer for jobName.
func NewRedisRunIDIncrementer(
	ctx context.Context,
	cfg *RedisConfig,
	jobName string,
	logger zerolog.Logger,
) (*RedisRunIDIncrementer, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Ping the Redis server to ensure a connection is established.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis for run ids")

	inc := NewRedisRunIDIncrementerWithClient(rdb, cfg.KeyPrefix, jobName, logger)
	inc.ownsClient = true
	return inc, nil
}

// NewRedisRunIDIncrementerWithClient uses an existing client. Close does not
// close an injected client.
func NewRedisRunIDIncrementerWithClient(client *redis.Client, keyPrefix, jobName string, logger zerolog.Logger) *RedisRunIDIncrementer {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	key := RunIDKey(keyPrefix, jobName)
	return &RedisRunIDIncrementer{
		client: client,
		key:    key,
		logger: logger.With().Str("component", "RedisRunIDIncrementer").Str("key", key).Logger(),
	}
}

// RunIDKey returns the Redis key holding the last run id of a job.
func RunIDKey(prefix, jobName string) string {
	return fmt.Sprintf("%s:%s:run_id", prefix, jobName)
}

// Next implements batch.RunIDIncrementer.
func (r *RedisRunIDIncrementer) Next(ctx context.Context) (int64, error) {
	id, err := r.client.Incr(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment run id: %w", err)
	}
	r.logger.Debug().Int64("run_id", id).Msg("Issued run id")
	return id, nil
}

// Last returns the most recently issued run id, or 0 if none was issued.
func (r *RedisRunIDIncrementer) Last(ctx context.Context) (int64, error) {
	id, err := r.client.Get(ctx, r.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	return id, nil
}

// Close closes the Redis client if this incrementer created it.
func (r *RedisRunIDIncrementer) Close() error {
	if r.ownsClient && r.client != nil {
		r.logger.Info().Msg("Closing Redis client connection...")
		return r.client.Close()
	}
	return nil
}
