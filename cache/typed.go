package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ratneshs230/Digital-Courtroom-sub001/utils"
)

// Load reads key and decodes it into T. A value that no longer decodes is
// reported as a miss.
func Load[T any](ctx context.Context, c *Cache, collection, key string) (T, bool) {
	var value T

	data, ok := c.Get(ctx, collection, key)
	if !ok {
		return value, false
	}

	if err := utils.Unmarshal(data, &value); err != nil {
		c.logger.Warn("Cached value does not decode, treating as miss",
			zap.String("collection", collection),
			zap.String("key", key),
			zap.Error(err))
		return value, false
	}
	return value, true
}

// LoadByHash is Load for a content-hash lookup.
func LoadByHash[T any](ctx context.Context, c *Cache, collection, hash string) (T, bool) {
	var value T

	data, ok := c.GetByHash(ctx, collection, hash)
	if !ok {
		return value, false
	}

	if err := utils.Unmarshal(data, &value); err != nil {
		return value, false
	}
	return value, true
}

func Store[T any](ctx context.Context, c *Cache, collection, key string, value T, ttl time.Duration, contentHash string) error {
	return c.Set(ctx, collection, key, value, ttl, contentHash)
}
