package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"WeddingRSVP/pkg/logger"
	"WeddingRSVP/storage/mq"
	"WeddingRSVP/storage/redis"
)

// Close 先停发布（MQ），再关 Redis
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	if err := mq.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close message queue", zap.Error(err))
	} else {
		logger.Logger.Info("Message queue closed successfully")
	}

	if err := redis.Close(ctx); err != nil {
		logger.Logger.Error("Failed to close Redis connection", zap.Error(err))
	} else {
		logger.Logger.Info("Redis connection closed successfully")
	}

	logger.Logger.Info("All storage connections closed")
}
