package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/pkg/logger"
	"WeddingRSVP/pkg/response"
	"WeddingRSVP/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 时间窗口（秒）
	Window int
	// 时间窗口内最大请求数
	MaxRequests int
	// 限流键前缀
	KeyPrefix string
	// 是否把 form_id 路径参数加入限流键
	ByForm bool
	// 阻塞时长（秒），超过限制后禁止访问的时间
	BlockDuration int
}

// PostalLookupRateLimitConfig 住所検索会随输入频繁触发，窗口内放宽
var PostalLookupRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   30,
	KeyPrefix:     "rate:postal",
	ByForm:        true,
	BlockDuration: 60,
}

// SubmitRateLimitConfig 提交和重新回答
var SubmitRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   5,
	KeyPrefix:     "rate:submit",
	ByForm:        false,
	BlockDuration: 300,
}

var (
	limiterClient   *redislib.Client
	limiterClientMu sync.RWMutex
	rateLimitOn     = true
)

// SetRateLimitClient 替换限流使用的 redis 客户端，nil 时回到全局客户端
func SetRateLimitClient(client *redislib.Client) {
	limiterClientMu.Lock()
	defer limiterClientMu.Unlock()
	limiterClient = client
}

func rateLimitClient() *redislib.Client {
	limiterClientMu.RLock()
	defer limiterClientMu.RUnlock()
	if limiterClient != nil {
		return limiterClient
	}
	return redis.Client()
}

// RateLimiter 基于 zset 的滑动窗口限流器
type RateLimiter struct {
	config RateLimitConfig
	now    func() time.Time
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{config: config, now: time.Now}
}

// getKey 按 IP 限流，ByForm 时再细分到表单
func (rl *RateLimiter) getKey(c *app.RequestContext) string {
	identifier := "ip:" + c.ClientIP()
	if rl.config.ByForm {
		if formID := c.Param("form_id"); formID != "" {
			identifier += ":form:" + formID
		}
	}
	return redis.Key(rl.config.KeyPrefix, identifier)
}

// Allow 检查是否允许请求，返回窗口内的请求数
func (rl *RateLimiter) Allow(ctx context.Context, c *app.RequestContext) (bool, int, error) {
	key := rl.getKey(c)
	now := rl.now()
	windowStart := now.Add(-time.Duration(rl.config.Window) * time.Second)

	pipe := rateLimitClient().Pipeline()

	// 先移除窗口外的记录
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	// 同一纳秒内的请求也要各占一个成员
	pipe.ZAdd(ctx, key, redislib.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString(),
	})
	zcardCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, time.Duration(rl.config.Window+10)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	count := int(zcardCmd.Val())
	return count <= rl.config.MaxRequests, count, nil
}

func (rl *RateLimiter) blockKey(c *app.RequestContext) string {
	return rl.getKey(c) + ":block"
}

func (rl *RateLimiter) Block(ctx context.Context, c *app.RequestContext) error {
	return rateLimitClient().Set(ctx, rl.blockKey(c), "1", time.Duration(rl.config.BlockDuration)*time.Second).Err()
}

func (rl *RateLimiter) IsBlocked(ctx context.Context, c *app.RequestContext) (bool, error) {
	n, err := rateLimitClient().Exists(ctx, rl.blockKey(c)).Result()
	return n > 0, err
}

// RateLimitMiddleware redis 不可用时放行，只记录日志
func RateLimitMiddleware(config RateLimitConfig) app.HandlerFunc {
	limiter := NewRateLimiter(config)
	log := logger.Named("ratelimit")

	return func(ctx context.Context, c *app.RequestContext) {
		if !rateLimitOn {
			c.Next(ctx)
			return
		}

		blocked, err := limiter.IsBlocked(ctx, c)
		if err != nil {
			log.Warn("Failed to check block status", zap.String("prefix", config.KeyPrefix), zap.Error(err))
			c.Next(ctx)
			return
		}
		if blocked {
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		allowed, count, err := limiter.Allow(ctx, c)
		if err != nil {
			log.Warn("Failed to check rate limit", zap.String("prefix", config.KeyPrefix), zap.Error(err))
			c.Next(ctx)
			return
		}

		remaining := config.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			if err := limiter.Block(ctx, c); err != nil {
				log.Warn("Failed to block client", zap.Error(err))
			}
			log.Info("Rate limit exceeded",
				zap.String("prefix", config.KeyPrefix),
				zap.String("client_ip", c.ClientIP()),
			)
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}

func PostalLookupRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(PostalLookupRateLimitConfig)
}

func SubmitRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(SubmitRateLimitConfig)
}
