package cache

import (
	"context"

	ri "github.com/redis/go-redis/v9"

	"WeddingRSVP/storage/redis"
)

// RedisKV 没有过期时间的键值存储，提交标记放在这里
type RedisKV struct {
	client *ri.Client
}

func NewRedisKV(client *ri.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (kv *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := kv.client.Get(ctx, redis.Key(key)).Result()
	if err == ri.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (kv *RedisKV) Set(ctx context.Context, key, value string) error {
	return kv.client.Set(ctx, redis.Key(key), value, 0).Err()
}

func (kv *RedisKV) Remove(ctx context.Context, key string) error {
	return kv.client.Del(ctx, redis.Key(key)).Err()
}
