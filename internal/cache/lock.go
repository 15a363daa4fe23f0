package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	ri "github.com/redis/go-redis/v9"

	"WeddingRSVP/storage/redis"
)

// 每个表单一把锁，同一表单上的修改串行执行
const lockPrefix = "lock:form"

// 只删除自己持有的锁
var unlockScript = ri.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// FormLocker 基于 SETNX 的表单锁
type FormLocker struct {
	client *ri.Client
	ttl    time.Duration
}

func NewFormLocker(client *ri.Client, ttl time.Duration) *FormLocker {
	return &FormLocker{client: client, ttl: ttl}
}

// TryLock 拿到锁时返回持有凭证，锁被占用时返回 ok=false
func (l *FormLocker) TryLock(ctx context.Context, formID string) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redis.Key(lockPrefix, formID), token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *FormLocker) Unlock(ctx context.Context, formID, token string) error {
	return unlockScript.Run(ctx, l.client, []string{redis.Key(lockPrefix, formID)}, token).Err()
}
