// Package cache stores computed trailing returns in Redis so repeated market
// requests within a day do not hit the price source again.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rewired-gh/sectorflow/internal/config"
	"github.com/rewired-gh/sectorflow/internal/models"
)

const keyPrefix = "sectorflow:return:"

// Redis is a return cache backed by a Redis server.
type Redis struct {
	client redis.Cmdable
	closer func() error
	ttl    time.Duration
}

// NewRedis connects to the server described by cfg.
func NewRedis(cfg config.CacheConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})
	return &Redis{client: client, closer: client.Close, ttl: cfg.TTL}
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Key returns the cache key of ticker's return computed on day.
func Key(ticker, day string) string {
	return keyPrefix + strings.ToUpper(ticker) + ":" + day
}

// Get returns the cached record. A miss is reported as ok=false with a nil error.
func (r *Redis) Get(ctx context.Context, ticker, day string) (models.ReturnRecord, bool, error) {
	raw, err := r.client.Get(ctx, Key(ticker, day)).Result()
	if errors.Is(err, redis.Nil) {
		return models.ReturnRecord{}, false, nil
	}
	if err != nil {
		return models.ReturnRecord{}, false, fmt.Errorf("redis get: %w", err)
	}

	var rec models.ReturnRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return models.ReturnRecord{}, false, fmt.Errorf("failed to decode cached return: %w", err)
	}
	return rec, true, nil
}

// Set stores rec under its ticker for day.
func (r *Redis) Set(ctx context.Context, rec models.ReturnRecord, day string) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode return: %w", err)
	}
	if err := r.client.Set(ctx, Key(rec.Ticker, day), string(data), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool when the cache owns it.
func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
