package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ratneshs230/Digital-Courtroom-sub001/cache"
	"github.com/ratneshs230/Digital-Courtroom-sub001/coordinator"
)

// Request describes one content-addressed computation. Parts are the
// inputs that determine the result; Prefix names the cache key space.
type Request struct {
	Collection string
	Prefix     string
	Parts      []string
	TTL        time.Duration
}

// Resolve returns the cached result for req's content, or computes it with
// fn exactly once across concurrent callers and caches it.
func Resolve[T any](ctx context.Context, s *Service, req Request, fn func(ctx context.Context) (T, error)) (T, error) {
	hash := s.hasher.Fingerprint(req.Parts...)

	if value, ok := cache.LoadByHash[T](ctx, s.cache, req.Collection, hash); ok {
		return value, nil
	}

	return coordinator.Do(ctx, s.coordinator, req.Collection+":"+hash, func(ctx context.Context) (T, error) {
		value, err := fn(ctx)
		if err != nil {
			return value, err
		}

		key := s.cache.Key(req.Prefix, req.Parts...)
		if err := cache.Store(ctx, s.cache, req.Collection, key, value, req.TTL, hash); err != nil {
			s.logger.Warn("Resolved value not cached",
				zap.String("collection", req.Collection),
				zap.String("key", key),
				zap.Error(err))
		}
		return value, nil
	})
}
