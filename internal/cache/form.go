package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ri "github.com/redis/go-redis/v9"

	"WeddingRSVP/internal/rsvp"
	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/storage/redis"
)

const formPrefix = "form"

// FormStore 表单会话以 JSON 存在 Redis，每次保存都会刷新 TTL
type FormStore struct {
	client *ri.Client
	ttl    time.Duration
}

func NewFormStore(client *ri.Client, ttl time.Duration) *FormStore {
	return &FormStore{client: client, ttl: ttl}
}

// Get 表单不存在或已过期时返回 errors.FormNotFound
func (s *FormStore) Get(ctx context.Context, formID string) (*rsvp.Form, error) {
	data, err := s.client.Get(ctx, redis.Key(formPrefix, formID)).Bytes()
	if err == ri.Nil {
		return nil, errors.FormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load form: %w", err)
	}

	var f rsvp.Form
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode form: %w", err)
	}
	return &f, nil
}

func (s *FormStore) Save(ctx context.Context, f *rsvp.Form) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode form: %w", err)
	}
	return s.client.Set(ctx, redis.Key(formPrefix, f.ID), data, s.ttl).Err()
}
