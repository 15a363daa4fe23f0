package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ErrNacked broker 明确拒收
var ErrNacked = errors.New("message nacked by broker")

// ErrUnroutable mandatory 消息没有可投递的队列，被 broker 退回
var ErrUnroutable = errors.New("message returned by broker as unroutable")

// InstrumentedChannel 包装 confirm 模式的 amqp.Channel，发布时记录 span、指标并注入追踪头
type InstrumentedChannel struct {
	ch          *amqp.Channel
	serviceName string
	propagators propagation.TextMapPropagator
	tracer      trace.Tracer

	published metric.Int64Counter
	duration  metric.Float64Histogram
	errors    metric.Int64Counter

	// broker 在 ack 之前送出 basic.return，确认后从这里找自己的消息
	returns   <-chan amqp.Return
	returnsMu sync.Mutex
	returned  map[string]amqp.Return
	onReturn  func(amqp.Return)
}

func NewInstrumentedChannel(ch *amqp.Channel, serviceName string) *InstrumentedChannel {
	meter := otel.Meter(serviceName + ".rabbitmq")

	ic := &InstrumentedChannel{
		ch:          ch,
		serviceName: serviceName,
		propagators: otel.GetTextMapPropagator(),
		tracer:      otel.Tracer(serviceName + ".rabbitmq"),
	}

	ic.published, _ = meter.Int64Counter(
		"mq.messages.total",
		metric.WithDescription("Total number of RabbitMQ messages published"),
		metric.WithUnit("{message}"),
	)
	ic.duration, _ = meter.Float64Histogram(
		"mq.publish.duration",
		metric.WithDescription("Publish plus broker confirm duration"),
		metric.WithUnit("s"),
	)
	ic.errors, _ = meter.Int64Counter(
		"mq.publish.errors",
		metric.WithDescription("Number of RabbitMQ publish errors"),
		metric.WithUnit("{error}"),
	)

	return ic
}

// PublishConfirmed 发布并等待 broker 确认；nack 返回 ErrNacked，ctx 到期返回 ctx 的错误
func (ic *InstrumentedChannel) PublishConfirmed(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	start := time.Now()

	ctx, span := ic.tracer.Start(ctx, "rabbitmq.publish "+exchange,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			attribute.String("messaging.destination.name", exchange),
			semconv.MessagingRabbitmqDestinationRoutingKey(routingKey),
			semconv.MessagingMessageID(msg.MessageId),
		),
	)
	defer span.End()

	headers := make(amqp.Table, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	ic.propagators.Inject(ctx, &MessageHeaderCarrier{Headers: headers})
	msg.Headers = headers

	err := ic.publish(ctx, exchange, routingKey, msg)

	status := "acked"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		if ic.errors != nil {
			ic.errors.Add(ctx, 1)
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}

	labels := metric.WithAttributes(
		attribute.String("messaging.rabbitmq.exchange", exchange),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
		attribute.String("messaging.status", status),
	)
	if ic.published != nil {
		ic.published.Add(ctx, 1, labels)
	}
	if ic.duration != nil {
		ic.duration.Record(ctx, time.Since(start).Seconds(), labels)
	}

	return err
}

// TrackReturns 接收 NotifyReturn 的通道。之后被退回的消息 PublishConfirmed 返回 ErrUnroutable，
// 不属于任何等待中发布的退回交给 onReturn
func (ic *InstrumentedChannel) TrackReturns(returns <-chan amqp.Return, onReturn func(amqp.Return)) {
	ic.returnsMu.Lock()
	defer ic.returnsMu.Unlock()
	ic.returns = returns
	ic.returned = make(map[string]amqp.Return)
	ic.onReturn = onReturn
}

// takeReturn 收取已到达的退回，返回 messageID 对应的那条
func (ic *InstrumentedChannel) takeReturn(messageID string) (amqp.Return, bool) {
	ic.returnsMu.Lock()
	defer ic.returnsMu.Unlock()

	if ic.returns == nil {
		return amqp.Return{}, false
	}
drain:
	for {
		select {
		case r, ok := <-ic.returns:
			if !ok {
				break drain
			}
			if r.MessageId == "" {
				ic.handleStray(r)
				continue
			}
			ic.returned[r.MessageId] = r
		default:
			break drain
		}
	}

	r, ok := ic.returned[messageID]
	if ok {
		delete(ic.returned, messageID)
	}
	return r, ok
}

// forgetReturn 放弃等待的发布不再认领退回
func (ic *InstrumentedChannel) forgetReturn(messageID string) {
	if r, ok := ic.takeReturn(messageID); ok {
		ic.returnsMu.Lock()
		ic.handleStray(r)
		ic.returnsMu.Unlock()
	}
}

func (ic *InstrumentedChannel) handleStray(r amqp.Return) {
	if ic.onReturn != nil {
		ic.onReturn(r)
	}
}

func (ic *InstrumentedChannel) publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	confirm, err := ic.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, true, false, msg)
	if err != nil {
		return err
	}
	// 通道不在 confirm 模式时没有回执
	if confirm == nil {
		return nil
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		ic.forgetReturn(msg.MessageId)
		return err
	}
	if !acked {
		ic.forgetReturn(msg.MessageId)
		return ErrNacked
	}
	if r, ok := ic.takeReturn(msg.MessageId); ok {
		return fmt.Errorf("%w: %d %s", ErrUnroutable, r.ReplyCode, r.ReplyText)
	}
	return nil
}

func (ic *InstrumentedChannel) Channel() *amqp.Channel {
	return ic.ch
}

// MessageHeaderCarrier 让 propagation 读写 AMQP 消息头
type MessageHeaderCarrier struct {
	Headers amqp.Table
}

func (m *MessageHeaderCarrier) Get(key string) string {
	if val, ok := m.Headers[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (m *MessageHeaderCarrier) Set(key, value string) {
	if m.Headers == nil {
		m.Headers = make(amqp.Table)
	}
	m.Headers[key] = value
}

func (m *MessageHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	return keys
}
