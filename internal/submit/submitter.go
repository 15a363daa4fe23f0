// Package submit 把完成校验的 RSVP 负载投递到外部端点。
// 两种传输都不自动重试，失败原样返回给调用方。
package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	amqp "github.com/rabbitmq/amqp091-go"

	"WeddingRSVP/internal/model"
	"WeddingRSVP/pkg/errors"
)

// Submitter 投递成功返回 nil
type Submitter interface {
	Submit(ctx context.Context, s model.Submission) error
	Transport() string
}

// HTTPSubmitter POST JSON，2xx 视为成功
type HTTPSubmitter struct {
	endpoint string
	timeout  time.Duration
	hc       *client.Client
}

func NewHTTPSubmitter(endpoint string, timeout time.Duration) (*HTTPSubmitter, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	hc, err := client.NewClient(
		client.WithDialer(standard.NewDialer()),
		client.WithDialTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create submit http client: %w", err)
	}

	return &HTTPSubmitter{endpoint: endpoint, timeout: timeout, hc: hc}, nil
}

func (h *HTTPSubmitter) Transport() string { return "http" }

func (h *HTTPSubmitter) Submit(ctx context.Context, s model.Submission) error {
	if h.endpoint == "" {
		return errors.SubmitterNotConfig
	}

	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	req, resp := protocol.AcquireRequest(), protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetRequestURI(h.endpoint)
	req.SetMethod(consts.MethodPost)
	req.Header.SetContentTypeBytes([]byte(consts.MIMEApplicationJSON))
	req.Header.Set("Idempotency-Key", s.SubmissionID)
	req.SetBody(body)

	if err := h.hc.DoTimeout(ctx, req, resp, h.timeout); err != nil {
		return fmt.Errorf("post submission: %w", err)
	}

	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return fmt.Errorf("submission endpoint returned status %d", status)
	}
	return nil
}

// Publisher 发布并等待 broker 确认
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// AMQPSubmitter 以持久化消息发布到 exchange，broker ack 视为成功
type AMQPSubmitter struct {
	publisher  Publisher
	exchange   string
	routingKey string
	timeout    time.Duration
}

func NewAMQPSubmitter(p Publisher, exchange, routingKey string, timeout time.Duration) *AMQPSubmitter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AMQPSubmitter{publisher: p, exchange: exchange, routingKey: routingKey, timeout: timeout}
}

func (a *AMQPSubmitter) Transport() string { return "amqp" }

func (a *AMQPSubmitter) Submit(ctx context.Context, s model.Submission) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  consts.MIMEApplicationJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    s.SubmissionID,
		Timestamp:    s.SubmittedAt,
		Type:         "rsvp.submission",
		Body:         body,
	}

	if err := a.publisher.Publish(ctx, a.exchange, a.routingKey, msg); err != nil {
		return fmt.Errorf("publish submission: %w", err)
	}
	return nil
}
