package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const versionKeyPrefix = "dashboard:version:"

// Cache stores built summaries in Redis under a per-owner version. Writes to
// an owner's data bump the version, which orphans every cached entry at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Version returns the owner's current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context, userID string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionKeyPrefix + userID
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes a cache key scoped to the owner's current version.
func (c *Cache) BuildKey(ctx context.Context, userID string, parts ...string) (string, error) {
	ver, err := c.Version(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("dashboard:%s:%s:%d", userID, strings.Join(parts, ":"), ver), nil
}

// FetchJSON loads a cached value or populates it using the loader. Redis
// failures degrade to an uncached load; only loader errors are returned.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	cached := c != nil && c.client != nil
	if cached {
		payload, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if err := json.Unmarshal(payload, dest); err == nil {
				return nil
			}
			c.logger.Warn("dashboard cache entry unreadable", slog.String("key", key))
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("dashboard cache read failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if cached {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("dashboard cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate bumps the owner's version.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	if c == nil || c.client == nil || userID == "" {
		return nil
	}
	return c.client.Incr(ctx, versionKeyPrefix+userID).Err()
}
