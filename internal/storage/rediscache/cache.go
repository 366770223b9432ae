// Package rediscache caches fetched price series in Redis, in front of a
// slower provider source.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marescialloNino/dex-analyzer/internal/domain"
	"github.com/marescialloNino/dex-analyzer/internal/fetch"
	"github.com/marescialloNino/dex-analyzer/internal/observability"
)

// SourceCache is a read-through TTL cache implementing fetch.PriceSource.
// Cache keys cover the full request (pool, interval, window), so a hit
// serves exactly the series the inner source would have returned.
type SourceCache struct {
	client *redis.Client
	inner  fetch.PriceSource
	ttl    time.Duration
	log    zerolog.Logger
}

// New connects to Redis and wraps the inner source.
func New(addr, password string, db int, ttl time.Duration, inner fetch.PriceSource) (*SourceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, ttl, inner), nil
}

// NewWithClient wraps an existing Redis client. Used in tests.
func NewWithClient(client *redis.Client, ttl time.Duration, inner fetch.PriceSource) *SourceCache {
	return &SourceCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		log:    log.With().Str("component", "rediscache").Logger(),
	}
}

// Compile-time interface check.
var _ fetch.PriceSource = (*SourceCache)(nil)

// Close releases the Redis connection.
func (c *SourceCache) Close() error {
	return c.client.Close()
}

func cacheKey(pool domain.Pool, req fetch.Request) string {
	return fmt.Sprintf("series:%s:%d:%d:%d", pool.PoolID, req.IntervalSeconds, req.StartMs, req.EndMs)
}

// FetchSeries serves the request from Redis when possible, falling back to
// the inner source and caching its result with the configured TTL.
func (c *SourceCache) FetchSeries(ctx context.Context, pool domain.Pool, req fetch.Request) (domain.PriceSeries, error) {
	key := cacheKey(pool, req)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var points []domain.PricePoint
		if err := json.Unmarshal(data, &points); err == nil {
			observability.RecordCacheHit()
			return domain.PriceSeries{Pool: pool, Points: points}, nil
		}
		// Corrupt entry; fall through to the source and overwrite
		c.log.Warn().Str("key", key).Msg("dropping undecodable cache entry")
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Str("key", key).Err(err).Msg("cache read failed")
	}

	observability.RecordCacheMiss()
	series, err := c.inner.FetchSeries(ctx, pool, req)
	if err != nil {
		return domain.PriceSeries{}, err
	}

	encoded, err := json.Marshal(series.Points)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("marshal series for cache: %w", err)
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.log.Warn().Str("key", key).Err(err).Msg("cache write failed")
	}

	return series, nil
}
