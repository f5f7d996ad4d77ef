package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long a recommendation payload stays cached.
// Recommendations drift slowly (engagement decays over days), so a short
// TTL keeps payloads fresh without recomputing per request.
const DefaultCacheTTL = 5 * time.Minute

// ErrCacheMiss is returned when no cached payload exists for the key.
var ErrCacheMiss = errors.New("recommendation cache miss")

// Cache stores recommendation responses in Redis, encoded as CBOR for
// compactness. Cache failures are never fatal to a request: callers fall
// through to the engine on any error.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *Metrics
}

// NewCache creates a response cache. A zero ttl uses DefaultCacheTTL.
// Metrics are optional.
func NewCache(client *redis.Client, ttl time.Duration, metrics *Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		client:  client,
		ttl:     ttl,
		metrics: metrics,
	}
}

// cacheKey builds the Redis key for a user/limit pair.
func cacheKey(userID string, limit int) string {
	return fmt.Sprintf("recommend:%s:%d", userID, limit)
}

// Get returns the cached response for the user/limit pair, or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, userID string, limit int) (*Response, error) {
	data, err := c.client.Get(ctx, cacheKey(userID, limit)).Bytes()
	if err == redis.Nil {
		if c.metrics != nil {
			c.metrics.IncCacheMiss()
		}
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var resp Response
	if err := cbor.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}

	if c.metrics != nil {
		c.metrics.IncCacheHit()
	}
	return &resp, nil
}

// Set stores a response under the user/limit key with the cache TTL.
func (c *Cache) Set(ctx context.Context, resp *Response) error {
	data, err := cbor.Marshal(resp)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(resp.UserID, resp.Limit), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
