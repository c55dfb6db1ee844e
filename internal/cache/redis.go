package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/law-makers/leadharvest/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "leadharvest:page:"

// RedisCache keeps rendered pages in Redis so several workers can share them
type RedisCache struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisCache connects to the Redis instance at redisURL
// (redis://[:password@]host:port/db) and verifies it answers PING.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, timeout: 2 * time.Second}
}

func (rc *RedisCache) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rc.timeout)
}

// Get retrieves a cached page
func (rc *RedisCache) Get(key string) (*models.PageData, bool) {
	ctx, cancel := rc.ctx()
	defer cancel()

	raw, err := rc.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debug().Err(err).Str("key", key).Msg("Redis cache read failed")
		}
		return nil, false
	}

	var page models.PageData
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false
	}
	return &page, true
}

// Set stores a page with ttl
func (rc *RedisCache) Set(key string, page *models.PageData, ttl time.Duration) error {
	if page == nil {
		return nil
	}
	raw, err := json.Marshal(page)
	if err != nil {
		return err
	}

	ctx, cancel := rc.ctx()
	defer cancel()
	return rc.client.Set(ctx, redisKeyPrefix+key, raw, ttl).Err()
}

// Delete removes a cached page
func (rc *RedisCache) Delete(key string) error {
	ctx, cancel := rc.ctx()
	defer cancel()
	return rc.client.Del(ctx, redisKeyPrefix+key).Err()
}

// Clear removes every page written by this cache
func (rc *RedisCache) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	iter := rc.client.Scan(ctx, 0, redisKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		if err := rc.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the underlying client
func (rc *RedisCache) Close() {
	if err := rc.client.Close(); err != nil {
		log.Debug().Err(err).Msg("Redis client close failed")
	}
}
