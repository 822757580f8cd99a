package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// DefaultPrefix namespaces memo keys in Redis.
const DefaultPrefix = "journal:metrics:"

// RedisConfig configures the Redis memo.
type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// DefaultRedisConfig returns defaults for a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:  "localhost:6379",
		PoolSize: 10,
		TTL:      DefaultTTL,
		Prefix:   DefaultPrefix,
		Breaker:  DefaultBreakerConfig(),
	}
}

// RedisMemo stores metric blocks as JSON in Redis. When Redis fails the
// breaker opens and calls fail fast with ErrCacheUnavailable, which the
// memoizing engine treats as a miss.
type RedisMemo struct {
	client  *redis.Client
	config  RedisConfig
	breaker *Breaker
	logger  zerolog.Logger
}

// NewRedisMemo connects to Redis. An unreachable server is not an error: the
// memo starts in degraded mode and probes again after the breaker cooldown.
func NewRedisMemo(cfg RedisConfig, logger zerolog.Logger) *RedisMemo {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	m := &RedisMemo{
		client:  client,
		config:  cfg,
		breaker: NewBreaker(cfg.Breaker),
		logger:  logger.With().Str("component", "redis_memo").Logger(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		m.logger.Warn().Err(err).Str("address", cfg.Address).Msg("Redis unreachable, memo running degraded")
		m.breaker.Trip()
		return m
	}
	m.logger.Info().Str("address", cfg.Address).Msg("Redis memo connected")
	return m
}

// Healthy reports whether the breaker lets calls through.
func (m *RedisMemo) Healthy() bool {
	return m.breaker.State() != CircuitOpen
}

// Breaker exposes the breaker for status reporting.
func (m *RedisMemo) Breaker() *Breaker {
	return m.breaker
}

func (m *RedisMemo) key(k string) string {
	return m.config.Prefix + k
}

// Get implements metrics.Memo.
func (m *RedisMemo) Get(ctx context.Context, key string) (models.AutoCalculated, bool, error) {
	var auto models.AutoCalculated
	if !m.breaker.Allow() {
		return auto, false, apperrors.ErrCacheUnavailable
	}

	data, err := m.client.Get(ctx, m.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		m.breaker.Success()
		return auto, false, nil
	}
	if err != nil {
		m.breaker.Failure()
		return auto, false, fmt.Errorf("%w: get %s: %v", apperrors.ErrCacheUnavailable, key, err)
	}
	m.breaker.Success()

	if err := json.Unmarshal(data, &auto); err != nil {
		// A corrupt entry is a miss; the next Set overwrites it.
		m.logger.Debug().Err(err).Str("key", key).Msg("Dropping undecodable memo entry")
		return models.AutoCalculated{}, false, nil
	}
	return auto, true, nil
}

// Set implements metrics.Memo.
func (m *RedisMemo) Set(ctx context.Context, key string, auto models.AutoCalculated) error {
	if !m.breaker.Allow() {
		return apperrors.ErrCacheUnavailable
	}
	data, err := json.Marshal(auto)
	if err != nil {
		return fmt.Errorf("encode memo entry: %w", err)
	}
	if err := m.client.Set(ctx, m.key(key), data, m.config.TTL).Err(); err != nil {
		m.breaker.Failure()
		return fmt.Errorf("%w: set %s: %v", apperrors.ErrCacheUnavailable, key, err)
	}
	m.breaker.Success()
	return nil
}

// Flush deletes every memo entry under the configured prefix.
func (m *RedisMemo) Flush(ctx context.Context) (int, error) {
	if !m.breaker.Allow() {
		return 0, apperrors.ErrCacheUnavailable
	}
	var deleted int
	iter := m.client.Scan(ctx, 0, m.config.Prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := m.client.Del(ctx, iter.Val()).Err(); err != nil {
			m.breaker.Failure()
			return deleted, fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		m.breaker.Failure()
		return deleted, fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
	}
	m.breaker.Success()
	return deleted, nil
}

// Close releases the Redis connection pool.
func (m *RedisMemo) Close() error {
	return m.client.Close()
}
