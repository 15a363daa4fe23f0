package storage

import (
	"WeddingRSVP/config"
	"WeddingRSVP/storage/mq"
	"WeddingRSVP/storage/redis"
)

// Init Redis 必需；RabbitMQ 只在使用 amqp 提交时连接
func Init() error {
	if err := redis.Init(); err != nil {
		return err
	}

	if config.Cfg.SubmitTransport == "amqp" {
		if err := mq.Init(); err != nil {
			return err
		}
	}

	return nil
}
