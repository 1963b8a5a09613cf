// Package cache provides a short-lived Redis cache for per-user unseen
// activity counters, keeping the has-unseen-info polling endpoint off the
// database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// UnseenCounts holds the per-user counters served by the has-unseen-info
// endpoint.
type UnseenCounts struct {
	Messages      int64 `json:"messages"`
	Requests      int64 `json:"requests"`
	Prescriptions int64 `json:"prescriptions"`
}

// Counters caches UnseenCounts per user with a short TTL. A nil *Counters
// is a valid no-op cache, so callers can skip nil checks when Redis is not
// configured.
type Counters struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCounters creates a counter cache on the given Redis client.
func NewCounters(rdb *redis.Client, ttl time.Duration) *Counters {
	return &Counters{rdb: rdb, ttl: ttl}
}

func counterKey(userID int64) string {
	return fmt.Sprintf("unseen:%d", userID)
}

// Get returns the cached counters for a user, or nil on a cache miss.
func (c *Counters) Get(ctx context.Context, userID int64) (*UnseenCounts, error) {
	if c == nil {
		return nil, nil
	}

	data, err := c.rdb.Get(ctx, counterKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached counters for %d: %w", userID, err)
	}

	var counts UnseenCounts
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("decode cached counters for %d: %w", userID, err)
	}
	return &counts, nil
}

// Set stores the counters for a user with the configured TTL.
func (c *Counters) Set(ctx context.Context, userID int64, counts UnseenCounts) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encode counters for %d: %w", userID, err)
	}
	if err := c.rdb.Set(ctx, counterKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached counters for %d: %w", userID, err)
	}
	return nil
}

// Invalidate drops the cached counters for a user. Called after writes that
// change unseen state so the next poll recomputes.
func (c *Counters) Invalidate(ctx context.Context, userID int64) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, counterKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached counters for %d: %w", userID, err)
	}
	return nil
}
