package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"WeddingRSVP/config"
	"WeddingRSVP/pkg/logger"
	pkgmq "WeddingRSVP/pkg/mq"
)

var (
	publisher *pkgmq.InstrumentedChannel
	pubMutex  sync.Mutex
)

// getPublisher 单例 confirm 通道，通道关闭后下次发布时重建
func getPublisher() (*pkgmq.InstrumentedChannel, error) {
	pubMutex.Lock()
	defer pubMutex.Unlock()

	if publisher != nil && !publisher.Channel().IsClosed() {
		return publisher, nil
	}

	c := Connection()
	if c == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := c.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	cfg := config.Cfg
	if err := ch.ExchangeDeclare(cfg.SubmitExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.SubmitExchange, err)
	}

	// 退回在对应的 ack 之前到达，缓冲只需容纳同时在途的发布
	returns := ch.NotifyReturn(make(chan amqp.Return, 64))
	publisher = pkgmq.NewInstrumentedChannel(ch, cfg.ServiceName)
	publisher.TrackReturns(returns, func(r amqp.Return) {
		logger.Logger.Warn("Unroutable message returned by broker",
			zap.String("component", "rabbitmq"),
			zap.String("exchange", r.Exchange),
			zap.String("routing_key", r.RoutingKey),
			zap.String("message_id", r.MessageId),
		)
	})

	logger.Logger.Info("Publisher channel created",
		zap.String("component", "rabbitmq"),
		zap.String("exchange", cfg.SubmitExchange),
	)

	return publisher, nil
}

func closePublisher() {
	pubMutex.Lock()
	defer pubMutex.Unlock()

	if publisher != nil {
		_ = publisher.Channel().Close()
		publisher = nil
	}
}

// Publisher 通过共享连接发布持久化消息；没有队列接收时返回 ErrUnroutable
type Publisher struct{}

func (Publisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	ic, err := getPublisher()
	if err != nil {
		return err
	}
	return ic.PublishConfirmed(ctx, exchange, routingKey, msg)
}
