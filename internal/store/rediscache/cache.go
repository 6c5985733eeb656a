package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/digest/internal/domain"
)

// Cache stores derived page metadata and create idempotency tokens in
// Redis. Everything here is best effort: entries expire by TTL and a
// Redis outage only disables enrichment caching, never the request.
type Cache struct {
	client *redis.Client
}

// NewCache creates a Redis-backed cache.
func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
	}
}

// SavePage caches derived metadata for a URL.
func (c *Cache) SavePage(ctx context.Context, url string, meta *domain.PageMetadata, ttl time.Duration) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal page metadata: %w", err)
	}

	if err := c.client.Set(ctx, PageKey(url), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache page metadata: %w", err)
	}
	return nil
}

// GetPage retrieves cached metadata for a URL. A cache miss returns
// (nil, nil).
func (c *Cache) GetPage(ctx context.Context, url string) (*domain.PageMetadata, error) {
	data, err := c.client.Get(ctx, PageKey(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get page metadata: %w", err)
	}

	var meta domain.PageMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal page metadata: %w", err)
	}
	return &meta, nil
}

// InvalidatePage removes the cached metadata for a URL.
func (c *Cache) InvalidatePage(ctx context.Context, url string) error {
	if err := c.client.Del(ctx, PageKey(url)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate page metadata: %w", err)
	}
	return nil
}

// ReserveToken reserves a create idempotency token for an owner and maps
// it to the created bookmark id. Returns false when the token was already
// reserved (duplicate submission).
func (c *Cache) ReserveToken(ctx context.Context, owner, token, bookmarkID string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, IdemKey(owner, token), bookmarkID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency token: %w", err)
	}
	return ok, nil
}

// LookupToken returns the bookmark id a token was reserved for, or ""
// when the token is unknown.
func (c *Cache) LookupToken(ctx context.Context, owner, token string) (string, error) {
	id, err := c.client.Get(ctx, IdemKey(owner, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up idempotency token: %w", err)
	}
	return id, nil
}

// RemapToken points an existing reservation at a new bookmark id,
// refreshing its TTL. Used when a reservation outlived its row and a
// fresh insert took over, so later replays return the surviving row
// instead of inserting again.
func (c *Cache) RemapToken(ctx context.Context, owner, token, bookmarkID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, IdemKey(owner, token), bookmarkID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to remap idempotency token: %w", err)
	}
	return nil
}

// ReleaseToken drops a reservation. Used when the insert that followed a
// successful reservation failed, so a retry can go through.
func (c *Cache) ReleaseToken(ctx context.Context, owner, token string) error {
	if err := c.client.Del(ctx, IdemKey(owner, token)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency token: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
