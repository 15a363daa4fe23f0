package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingHook 为每条 Redis 命令记录 span 和指标
type TracingHook struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue

	commands metric.Int64Counter
	duration metric.Float64Histogram
	hits     metric.Int64Counter
	misses   metric.Int64Counter
}

// NewTracingHook 从全局 MeterProvider 创建指标；没有初始化 OTel 时是 noop
func NewTracingHook(serviceName string, db int) *TracingHook {
	meter := otel.Meter(serviceName + ".redis")

	h := &TracingHook{
		tracer: otel.Tracer(serviceName + ".redis"),
		attrs: []attribute.KeyValue{
			semconv.DBSystemRedis,
			semconv.DBRedisDBIndex(db),
			attribute.String("service.name", serviceName),
		},
	}

	// 创建失败时保留 nil，记录时跳过
	h.commands, _ = meter.Int64Counter(
		"redis.commands.total",
		metric.WithDescription("Total number of Redis commands"),
		metric.WithUnit("{command}"),
	)
	h.duration, _ = meter.Float64Histogram(
		"redis.command.duration",
		metric.WithDescription("Redis command duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0),
	)
	h.hits, _ = meter.Int64Counter(
		"redis.cache.hits",
		metric.WithDescription("GET commands that found a value"),
		metric.WithUnit("{hit}"),
	)
	h.misses, _ = meter.Int64Counter(
		"redis.cache.misses",
		metric.WithDescription("GET commands that found nothing"),
		metric.WithUnit("{miss}"),
	)

	return h
}

func (th *TracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (th *TracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := th.tracer.Start(ctx, strings.ToUpper(cmd.Name()),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(th.attrs...),
		)
		defer span.End()

		// 只记录命令名和键名，值里可能有联系方式
		span.SetAttributes(semconv.DBOperation(cmd.Name()))
		if keys := extractKeys(cmd.Args()); len(keys) > 0 {
			span.SetAttributes(attribute.StringSlice("redis.keys", keys))
		}

		start := time.Now()
		err := next(ctx, cmd)
		elapsed := time.Since(start).Seconds()

		status := "success"
		switch {
		case err == redis.Nil:
			status = "not_found"
			span.SetStatus(codes.Ok, "key not found")
		case err != nil:
			status = "error"
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		default:
			span.SetStatus(codes.Ok, "")
		}

		labels := metric.WithAttributes(
			attribute.String("redis.command", cmd.Name()),
			attribute.String("redis.status", status),
		)
		if th.commands != nil {
			th.commands.Add(ctx, 1, labels)
		}
		if th.duration != nil {
			th.duration.Record(ctx, elapsed, labels)
		}

		if cmd.Name() == "get" {
			if err == redis.Nil && th.misses != nil {
				th.misses.Add(ctx, 1)
			} else if err == nil && th.hits != nil {
				th.hits.Add(ctx, 1)
			}
		}

		return err
	}
}

func (th *TracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := th.tracer.Start(ctx, "redis.pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(th.attrs...),
		)
		defer span.End()

		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.Name())
		}
		span.SetAttributes(
			attribute.Int("redis.pipeline.count", len(cmds)),
			attribute.String("redis.pipeline.commands", strings.Join(names, ";")),
		)

		err := next(ctx, cmds)
		if err != nil && err != redis.Nil {
			span.SetStatus(codes.Error, err.Error())
		}
		if th.commands != nil {
			th.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("redis.command", "pipeline")))
		}
		return err
	}
}

func extractKeys(args []interface{}) []string {
	if len(args) < 2 {
		return nil
	}
	keys := make([]string, 0, 1)
	// 只取第一个参数之后的第一个键，其余参数多半是值
	if key, ok := args[1].(string); ok {
		keys = append(keys, sanitizeKey(key))
	}
	return keys
}

// sanitizeKey 提交标记的键里带着来宾 ID，只保留前缀
func sanitizeKey(key string) string {
	if i := strings.Index(key, "rsvp_submitted_"); i >= 0 {
		return key[:i] + "rsvp_submitted_***"
	}
	if strings.Contains(key, "session") || strings.Contains(key, "csrf") {
		parts := strings.Split(key, ":")
		return parts[0] + ":***"
	}
	if len(key) > 100 {
		return key[:100] + "..."
	}
	return key
}

// InstrumentClient 给客户端挂上 TracingHook
func InstrumentClient(client *redis.Client, serviceName string, db int) {
	client.AddHook(NewTracingHook(serviceName, db))
}
