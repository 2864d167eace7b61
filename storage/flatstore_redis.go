package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

// RedisFlatStore keeps each flat key as a plain redis string under KeyPrefix.
type RedisFlatStore struct {
	logger types.Logger
	config *types.RedisConfig
	client *redis.Client
}

func NewRedisFlatStore(config *types.RedisConfig, logger types.Logger) *RedisFlatStore {
	redisConfig := &types.RedisConfig{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "courtcore",
	}
	if config != nil {
		mergeRedisConfig(redisConfig, config)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password:     redisConfig.Password,
		DB:           redisConfig.DB,
		PoolSize:     redisConfig.PoolSize,
		DialTimeout:  redisConfig.DialTimeout,
		ReadTimeout:  redisConfig.ReadTimeout,
		WriteTimeout: redisConfig.WriteTimeout,
	})

	return &RedisFlatStore{
		logger: logger,
		config: redisConfig,
		client: client,
	}
}

func mergeRedisConfig(dst, src *types.RedisConfig) {
	if src.Host != "" {
		dst.Host = src.Host
	}
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.Password != "" {
		dst.Password = src.Password
	}
	if src.DB != 0 {
		dst.DB = src.DB
	}
	if src.PoolSize != 0 {
		dst.PoolSize = src.PoolSize
	}
	if src.DialTimeout != 0 {
		dst.DialTimeout = src.DialTimeout
	}
	if src.ReadTimeout != 0 {
		dst.ReadTimeout = src.ReadTimeout
	}
	if src.WriteTimeout != 0 {
		dst.WriteTimeout = src.WriteTimeout
	}
	if src.KeyPrefix != "" {
		dst.KeyPrefix = src.KeyPrefix
	}
}

func (r *RedisFlatStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return types.Errorf(types.ErrBackendUnavailable, "redis ping: %v", err)
	}

	r.logger.Debug("Redis flat store reachable", zap.String("addr", r.client.Options().Addr))
	return nil
}

func (r *RedisFlatStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.buildFullKey(key)).Bytes()
	if err != nil {
		if types.IsError(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, types.Errorf(types.ErrTransactionFailure, "redis get %s: %v", key, err)
	}
	return value, true, nil
}

func (r *RedisFlatStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.buildFullKey(key), value, 0).Err(); err != nil {
		return types.Errorf(types.ErrTransactionFailure, "redis set %s: %v", key, err)
	}
	return nil
}

func (r *RedisFlatStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.buildFullKey(key)).Err(); err != nil {
		return types.Errorf(types.ErrTransactionFailure, "redis del %s: %v", key, err)
	}
	return nil
}

func (r *RedisFlatStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := r.buildFullKey(escapeGlob(prefix)) + "*"
	trim := r.buildFullKey("")

	keys := make([]string, 0)
	iter := r.client.Scan(ctx, 0, pattern, 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), trim))
	}
	if err := iter.Err(); err != nil {
		return nil, types.Errorf(types.ErrTransactionFailure, "redis scan %s: %v", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (r *RedisFlatStore) Close() error {
	if err := r.client.Close(); err != nil {
		return types.WrapError(err, "failed to close redis client")
	}
	return nil
}

func (r *RedisFlatStore) buildFullKey(key string) string {
	if r.config.KeyPrefix != "" {
		return r.config.KeyPrefix + ":" + key
	}
	return key
}

func escapeGlob(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return replacer.Replace(s)
}
