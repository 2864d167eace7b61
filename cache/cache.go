// Package cache is a TTL cache with content-hash lookup layered on the
// storage facade's cache collections.
//
// Get is the only expiry authority: an entry with now >= ExpiresAt is absent
// whether or not Sweep has removed it yet. Sweep only bounds storage size.
// Timestamps are wall-clock milliseconds, so clock changes shift perceived TTLs.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ratneshs230/Digital-Courtroom-sub001/metrics"
	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
	"github.com/ratneshs230/Digital-Courtroom-sub001/utils"
)

const (
	DefaultTTL       = 24 * time.Hour
	DefaultKeyLength = 16
)

// Storage is the part of the storage facade the cache needs.
type Storage interface {
	GetByID(ctx context.Context, collection, id string) (types.Record, bool, error)
	GetAll(ctx context.Context, collection string) ([]types.Record, error)
	GetByIndex(ctx context.Context, collection, index, value string) ([]types.Record, error)
	Put(ctx context.Context, collection string, record types.Record) error
	Delete(ctx context.Context, collection, id string) error
	PurgeExpired(ctx context.Context, collection string, nowMs int64) (int, error)
}

// Fingerprinter derives the hex digest keys are built from.
type Fingerprinter interface {
	Fingerprint(parts ...string) string
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func WithMetrics(manager types.MetricsManager) Option {
	return func(c *Cache) {
		if manager != nil {
			c.metrics = manager
		}
	}
}

// WithCollections sets the collections swept when Sweep gets none.
func WithCollections(collections ...string) Option {
	return func(c *Cache) {
		c.collections = collections
	}
}

type Cache struct {
	logger      types.Logger
	metrics     types.MetricsManager
	storage     Storage
	hasher      Fingerprinter
	defaultTTL  time.Duration
	keyLength   int
	collections []string
	now         func() time.Time
}

func New(storage Storage, hasher Fingerprinter, config *types.CacheConfig, logger types.Logger, opts ...Option) *Cache {
	c := &Cache{
		logger:     logger,
		metrics:    metrics.Nop(),
		storage:    storage,
		hasher:     hasher,
		defaultTTL: DefaultTTL,
		keyLength:  DefaultKeyLength,
		now:        time.Now,
	}

	if config != nil {
		if config.DefaultTTL > 0 {
			c.defaultTTL = config.DefaultTTL
		}
		if config.KeyLength > 0 {
			c.keyLength = config.KeyLength
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Key derives prefix + the first keyLength hex chars of the parts' fingerprint.
func (c *Cache) Key(prefix string, parts ...string) string {
	digest := c.hasher.Fingerprint(parts...)
	if len(digest) > c.keyLength {
		digest = digest[:c.keyLength]
	}
	return prefix + digest
}

// Get returns the raw JSON value stored at key. Expired entries are deleted
// on the way out; storage failures read as a miss.
func (c *Cache) Get(ctx context.Context, collection, key string) ([]byte, bool) {
	start := time.Now()

	entry, ok := c.lookup(ctx, collection, key)
	if !ok {
		c.recordMetric(collection, "get", "miss", time.Since(start))
		return nil, false
	}

	c.recordMetric(collection, "get", "hit", time.Since(start))
	return entry.Value, true
}

func (c *Cache) lookup(ctx context.Context, collection, key string) (types.CacheEntry, bool) {
	if key == "" {
		return types.CacheEntry{}, false
	}

	record, found, err := c.storage.GetByID(ctx, collection, key)
	if err != nil {
		c.logger.Warn("Cache read failed, treating as miss",
			zap.String("collection", collection),
			zap.String("key", key),
			zap.Error(err))
		return types.CacheEntry{}, false
	}
	if !found {
		return types.CacheEntry{}, false
	}

	entry := types.CacheEntryFromRecord(record)
	if entry.Expired(c.nowMs()) {
		c.evict(ctx, collection, key)
		return types.CacheEntry{}, false
	}

	return entry, true
}

// Set stores value under key for ttl; ttl <= 0 means the default TTL.
// json.RawMessage values are stored as is, anything else is serialized.
func (c *Cache) Set(ctx context.Context, collection, key string, value interface{}, ttl time.Duration, contentHash string) error {
	start := time.Now()

	err := c.set(ctx, collection, key, value, ttl, contentHash)

	result := "success"
	if err != nil {
		result = "error"
	}
	c.recordMetric(collection, "set", result, time.Since(start))
	return err
}

func (c *Cache) set(ctx context.Context, collection, key string, value interface{}, ttl time.Duration, contentHash string) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	data, err := encode(value)
	if err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	createdAt := c.nowMs()
	expiresAt := createdAt + ttl.Milliseconds()
	if expiresAt <= createdAt {
		expiresAt = createdAt + 1
	}

	entry := types.CacheEntry{
		Key:         key,
		Value:       data,
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
		ContentHash: contentHash,
	}

	if err := c.storage.Put(ctx, collection, entry.Record()); err != nil {
		return types.WrapError(err, types.ErrCacheOperationFailed.Error())
	}
	return nil
}

// GetByHash returns a live entry whose content hash matches. If several
// live entries share the hash, which one is returned is unspecified.
func (c *Cache) GetByHash(ctx context.Context, collection, hash string) ([]byte, bool) {
	start := time.Now()

	entry, ok := c.lookupHash(ctx, collection, hash)
	if !ok {
		c.recordMetric(collection, "get_by_hash", "miss", time.Since(start))
		return nil, false
	}

	c.recordMetric(collection, "get_by_hash", "hit", time.Since(start))
	return entry.Value, true
}

func (c *Cache) lookupHash(ctx context.Context, collection, hash string) (types.CacheEntry, bool) {
	if hash == "" {
		return types.CacheEntry{}, false
	}

	records, err := c.storage.GetByIndex(ctx, collection, types.IndexContentHash, hash)
	if err != nil {
		c.logger.Warn("Cache hash lookup failed, treating as miss",
			zap.String("collection", collection),
			zap.String("hash", hash),
			zap.Error(err))
		return types.CacheEntry{}, false
	}

	nowMs := c.nowMs()
	for _, record := range records {
		entry := types.CacheEntryFromRecord(record)
		if entry.Expired(nowMs) {
			c.evict(ctx, collection, entry.Key)
			continue
		}
		return entry, true
	}

	return types.CacheEntry{}, false
}

func (c *Cache) Delete(ctx context.Context, collection, key string) error {
	start := time.Now()

	err := c.storage.Delete(ctx, collection, key)

	result := "success"
	if err != nil {
		result = "error"
		err = types.WrapError(err, types.ErrCacheOperationFailed.Error())
	}
	c.recordMetric(collection, "delete", result, time.Since(start))
	return err
}

// Entries lists the live entries of a collection.
func (c *Cache) Entries(ctx context.Context, collection string) ([]types.CacheEntry, error) {
	records, err := c.storage.GetAll(ctx, collection)
	if err != nil {
		return nil, types.WrapError(err, types.ErrCacheOperationFailed.Error())
	}

	nowMs := c.nowMs()
	entries := make([]types.CacheEntry, 0, len(records))
	for _, record := range records {
		entry := types.CacheEntryFromRecord(record)
		if !entry.Expired(nowMs) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Sweep removes every entry with ExpiresAt <= now from the given collections,
// or from the configured ones when none are given. Collections are swept
// concurrently; the count covers the collections that succeeded.
func (c *Cache) Sweep(ctx context.Context, collections ...string) (int, error) {
	if len(collections) == 0 {
		collections = c.collections
	}

	start := time.Now()
	nowMs := c.nowMs()
	counts := make([]int, len(collections))

	g, gCtx := errgroup.WithContext(ctx)
	for i, collection := range collections {
		i, collection := i, collection
		g.Go(func() error {
			removed, err := c.storage.PurgeExpired(gCtx, collection, nowMs)
			if err != nil {
				return types.WrapError(err, "sweep "+collection)
			}
			counts[i] = removed
			return nil
		})
	}

	err := g.Wait()

	total := 0
	for i, n := range counts {
		total += n
		if n > 0 {
			c.metrics.Counter("cache_evictions_total", map[string]string{"collection": collections[i], "reason": "sweep"}).Add(float64(n))
		}
	}

	result := "success"
	if err != nil {
		result = "error"
	}
	c.recordMetric("*", "sweep", result, time.Since(start))

	if total > 0 {
		c.logger.Debug("Cache sweep completed", zap.Int("removed", total), zap.Strings("collections", collections))
	}
	return total, err
}

func (c *Cache) evict(ctx context.Context, collection, key string) {
	if err := c.storage.Delete(ctx, collection, key); err != nil {
		c.logger.Debug("Lazy eviction failed", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
		return
	}
	c.metrics.Counter("cache_evictions_total", map[string]string{"collection": collection, "reason": "expired"}).Inc()
}

func (c *Cache) nowMs() int64 {
	return c.now().UnixMilli()
}

func (c *Cache) recordMetric(collection, operation, result string, duration time.Duration) {
	c.metrics.Counter("cache_operations_total", map[string]string{
		"collection": collection,
		"operation":  operation,
		"result":     result,
	}).Inc()

	c.metrics.Histogram("cache_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	).Observe(duration.Seconds())
}

func encode(value interface{}) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}

	data, err := utils.Marshal(value)
	if err != nil {
		return nil, types.Errorf(types.ErrSerializationFailure, "cache value: %v", err)
	}
	return data, nil
}
