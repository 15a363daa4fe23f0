package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"WeddingRSVP/config"
)

var (
	conn    *amqp.Connection
	connMux sync.RWMutex
)

// Init 只在 SUBMIT_TRANSPORT=amqp 时调用
func Init() error {
	connMux.Lock()
	defer connMux.Unlock()

	if conn != nil && !conn.IsClosed() {
		return nil
	}

	c, err := amqp.Dial(config.Cfg.GetRabbitMQURL())
	if err != nil {
		return fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	conn = c
	return nil
}

func Connection() *amqp.Connection {
	connMux.RLock()
	defer connMux.RUnlock()
	return conn
}

func Close(ctx context.Context) error {
	closePublisher()

	connMux.Lock()
	defer connMux.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}
	err := conn.Close()
	conn = nil
	return err
}
