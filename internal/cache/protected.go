package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	ri "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"WeddingRSVP/pkg/logger"
	"WeddingRSVP/storage/redis"
)

const (
	// 空值缓存标识，CMS 中不存在的来宾也缓存一段时间
	emptyValueFlag = "__EMPTY__"
	emptyValueTTL  = time.Minute
	// 防雪崩随机延迟上限
	breakerRandomDelayMax = 50 * time.Millisecond
)

// ProtectedCache 带空值保护和随机延迟的 JSON 缓存
type ProtectedCache struct {
	client    *ri.Client
	keyPrefix string
	ttl       time.Duration
	emptyTTL  time.Duration
	jitter    time.Duration
}

func NewProtectedCache(client *ri.Client, keyPrefix string, ttl time.Duration) *ProtectedCache {
	return &ProtectedCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		emptyTTL:  emptyValueTTL,
		jitter:    breakerRandomDelayMax,
	}
}

// WithoutJitter 关闭随机延迟
func (pc *ProtectedCache) WithoutJitter() *ProtectedCache {
	pc.jitter = 0
	return pc
}

// Set value 为 nil 时写入空值标识，使用较短 TTL
func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	cacheKey := redis.Key(pc.keyPrefix, key)

	data, ttl := emptyValueFlag, pc.emptyTTL
	if value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal cache value: %w", err)
		}
		data, ttl = string(raw), pc.ttl
	}

	return pc.client.Set(ctx, cacheKey, data, ttl).Err()
}

// Get 返回 (hit, empty, err)。empty 为 true 表示命中了空值标识，dest 未被写入
func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (bool, bool, error) {
	cacheKey := redis.Key(pc.keyPrefix, key)

	if err := pc.addBreakerDelay(ctx); err != nil {
		return false, false, err
	}

	data, err := pc.client.Get(ctx, cacheKey).Result()
	if err != nil {
		if err == ri.Nil {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to get cache: %w", err)
	}

	if data == emptyValueFlag {
		return true, true, nil
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		logger.Logger.Warn("Dropping undecodable cache entry",
			zap.String("key", cacheKey),
			zap.Error(err),
		)
		_ = pc.client.Del(ctx, cacheKey).Err()
		return false, false, nil
	}

	return true, false, nil
}

func (pc *ProtectedCache) addBreakerDelay(ctx context.Context) error {
	if pc.jitter <= 0 {
		return nil
	}

	delay := time.Duration(rand.Int63n(int64(pc.jitter)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
