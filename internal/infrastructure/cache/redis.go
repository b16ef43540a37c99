// Package cache provides a Redis read-through layer over the classification
// store, for the serving path that reads one date's signals repeatedly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sawpanic/derivscan/internal/persistence"
)

// Config holds the Redis connection settings.
type Config struct {
	Addr     string        `yaml:"addr" default:"localhost:6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" default:"0"`
	TTL      time.Duration `yaml:"ttl" default:"15m"`
}

// ClassificationCache is a read-through cache over a ClassificationStore.
// Writes go straight to the store and invalidate the date's cache entry;
// reads hit Redis first. A Redis failure degrades to the store, never to an
// error.
type ClassificationCache struct {
	store  persistence.ClassificationStore
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewClassificationCache wires the cache over the given store.
func NewClassificationCache(store persistence.ClassificationStore, cfg Config, log zerolog.Logger) *ClassificationCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &ClassificationCache{
		store:  store,
		client: client,
		ttl:    cfg.TTL,
		log:    log.With().Str("component", "classification_cache").Logger(),
	}
}

func cacheKey(date time.Time) string {
	return fmt.Sprintf("derivscan:signals:%s", date.Format("2006-01-02"))
}

// UpsertBatch writes through to the store and drops the affected dates from
// the cache.
func (c *ClassificationCache) UpsertBatch(ctx context.Context, rows []persistence.SignalClassificationRow) (int64, error) {
	written, err := c.store.UpsertBatch(ctx, rows)
	if err != nil {
		return written, err
	}

	dropped := map[string]struct{}{}
	for _, row := range rows {
		key := cacheKey(row.TradeDate)
		if _, ok := dropped[key]; ok {
			continue
		}
		dropped[key] = struct{}{}
		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
		}
	}
	return written, nil
}

// ByDate returns the date's classifications, from Redis when warm.
func (c *ClassificationCache) ByDate(ctx context.Context, date time.Time) ([]persistence.SignalClassificationRow, error) {
	key := cacheKey(date)

	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rows []persistence.SignalClassificationRow
		if jsonErr := json.Unmarshal(payload, &rows); jsonErr == nil {
			return rows, nil
		}
		// Corrupt entry: fall through to the store and rewrite it.
		c.log.Warn().Str("key", key).Msg("dropping corrupt cache entry")
	case errors.Is(err, redis.Nil):
		// Miss.
	default:
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed, serving from store")
	}

	rows, err := c.store.ByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(rows); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return rows, nil
}

// Close releases the Redis connection.
func (c *ClassificationCache) Close() error {
	return c.client.Close()
}
