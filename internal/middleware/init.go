package middleware

import (
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"WeddingRSVP/config"
	"WeddingRSVP/pkg/logger"
	"WeddingRSVP/pkg/metrics"
)

// Init 初始化中间件依赖：限流的 redis 客户端和 HTTP 指标
func Init(client *redislib.Client) error {
	SetRateLimitClient(client)
	rateLimitOn = config.Cfg.RateLimitEnabled

	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Error("Failed to initialize HTTP metrics", zap.Error(err))
		return err
	}

	logger.Logger.Info("All middlewares initialized successfully",
		zap.Bool("rate_limit", rateLimitOn),
		zap.Bool("csrf", config.Cfg.CSRFEnabled),
	)
	return nil
}
