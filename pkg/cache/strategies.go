package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"accountsvc/pkg/logger"
	"accountsvc/pkg/metrics"
)

const AccountByIDKey = "account:id:%s"

const ShortExpiration = 5 * time.Minute

type CacheStrategy interface {
	// ReadThrough serves dest from the cache, falling back to fetchFunc on a
	// miss and storing its result.
	ReadThrough(ctx context.Context, key string, dest interface{}, fetchFunc func() (interface{}, error), expiration time.Duration) error
	// Invalidate drops keys after the source of truth changed.
	Invalidate(ctx context.Context, keys ...string) error
}

type CacheManager struct {
	cache  Cache
	logger logger.Logger
}

func NewCacheManager(cache Cache, logger logger.Logger) *CacheManager {
	return &CacheManager{
		cache:  cache,
		logger: logger,
	}
}

func (cm *CacheManager) ReadThrough(ctx context.Context, key string, dest interface{}, fetchFunc func() (interface{}, error), expiration time.Duration) error {
	err := cm.cache.Get(ctx, key, dest)
	if err == nil {
		metrics.RecordCacheHit()
		return nil
	}
	metrics.RecordCacheMiss()

	if !errors.Is(err, ErrCacheMiss) {
		// fall through to the source; a broken cache must not fail reads
		cm.logger.WarnContext(ctx, "Cache error in read-through", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	data, err := fetchFunc()
	if err != nil {
		return err
	}

	if err := cm.cache.Set(ctx, key, data, expiration); err != nil {
		cm.logger.WarnContext(ctx, "Cache set error in read-through", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	return copyData(data, dest)
}

func (cm *CacheManager) Invalidate(ctx context.Context, keys ...string) error {
	if err := cm.cache.Delete(ctx, keys...); err != nil {
		cm.logger.ErrorContext(ctx, "Cache invalidation failed", map[string]interface{}{
			"keys":  keys,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func copyData(src, dest interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
