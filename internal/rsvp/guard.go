package rsvp

import (
	"context"
	"sync"
)

const guardKeyPrefix = "rsvp_submitted_"

// KVStore 持久化的键值存储，代替浏览器里的全局 localStorage
type KVStore interface {
	// Get 键不存在时返回 ("", false, nil)
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Guard 每位来宾一个「已提交」标记，没有过期时间，只能由用户主动清除
type Guard struct {
	store KVStore
}

func NewGuard(store KVStore) *Guard {
	return &Guard{store: store}
}

// GuardKey rsvp_submitted_<guestId>
func GuardKey(guestID string) string {
	return guardKeyPrefix + guestID
}

// HasSubmitted 键不存在或值为 "false" 时视为未提交
func (g *Guard) HasSubmitted(ctx context.Context, guestID string) (bool, error) {
	v, ok, err := g.store.Get(ctx, GuardKey(guestID))
	if err != nil {
		return false, err
	}
	return ok && v == "true", nil
}

func (g *Guard) MarkSubmitted(ctx context.Context, guestID string) error {
	return g.store.Set(ctx, GuardKey(guestID), "true")
}

// Clear 「再回答する」时调用
func (g *Guard) Clear(ctx context.Context, guestID string) error {
	return g.store.Remove(ctx, GuardKey(guestID))
}

// MemoryKV 进程内实现，用于测试和没有 Redis 的本地运行
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
