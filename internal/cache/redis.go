package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tasktrack/backend/internal/config"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrCacheDown = errors.New("cache unavailable")
)

// RedisCache stores JSON-encoded values with per-call timeouts. All methods
// are safe for concurrent use.
type RedisCache struct {
	client  *redis.Client
	ctx     context.Context
	metrics *metricsRecorder
}

func NewRedisCache(cfg config.RedisConfig, addr string) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	return &RedisCache{
		client:  rdb,
		ctx:     context.Background(),
		metrics: newMetricsRecorder(),
	}
}

// NewRedisCacheFromClient wraps an existing client; used by tests with
// miniredis.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		ctx:     context.Background(),
		metrics: newMetricsRecorder(),
	}
}

// Key builders keep every caller on the same naming scheme so pattern
// invalidation stays correct.

func AnalyticsKey(userID uuid.UUID, view string, period int) string {
	return fmt.Sprintf("analytics:%s:%s:%d", userID.String(), view, period)
}

func AnalyticsPattern(userID uuid.UUID) string {
	return fmt.Sprintf("analytics:%s:*", userID.String())
}

func TaskListKey(userID uuid.UUID, fingerprint string) string {
	return fmt.Sprintf("tasks:%s:%s", userID.String(), fingerprint)
}

func TaskListPattern(userID uuid.UUID) string {
	return fmt.Sprintf("tasks:%s:*", userID.String())
}

func (r *RedisCache) Set(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		r.metrics.failure()
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	ctx, cancel := context.WithTimeout(r.ctx, 3*time.Second)
	defer cancel()

	if err := r.client.Set(ctx, key, data, expiration).Err(); err != nil {
		r.metrics.failure()
		return fmt.Errorf("failed to set cache: %w", err)
	}

	r.metrics.set()
	return nil
}

func (r *RedisCache) Get(key string, dest interface{}) error {
	ctx, cancel := context.WithTimeout(r.ctx, 3*time.Second)
	defer cancel()

	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			r.metrics.miss()
			return ErrCacheMiss
		}
		r.metrics.failure()
		return fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		r.metrics.failure()
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	r.metrics.hit()
	return nil
}

func (r *RedisCache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(r.ctx, 3*time.Second)
	defer cancel()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.metrics.failure()
		return err
	}
	r.metrics.delete()
	return nil
}

func (r *RedisCache) DeletePattern(pattern string) error {
	ctx, cancel := context.WithTimeout(r.ctx, 10*time.Second)
	defer cancel()

	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		r.metrics.failure()
		return fmt.Errorf("failed to get keys for pattern %s: %w", pattern, err)
	}

	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			r.metrics.failure()
			return err
		}
		r.metrics.delete()
	}

	return nil
}

func (r *RedisCache) Exists(key string) (bool, error) {
	ctx, cancel := context.WithTimeout(r.ctx, 3*time.Second)
	defer cancel()

	result, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}

	return result > 0, nil
}

func (r *RedisCache) Health() error {
	ctx, cancel := context.WithTimeout(r.ctx, 2*time.Second)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

// Client exposes the underlying connection for the job queue, which shares
// the same redis instance.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

func (r *RedisCache) Metrics() CacheMetrics {
	return r.metrics.snapshot()
}

func (r *RedisCache) HitRate() float64 {
	return r.metrics.hitRate()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
