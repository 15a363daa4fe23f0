package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"WeddingRSVP/pkg/metrics"
)

// toValidUTF8 路径里带日文参数，非法 UTF-8 会让指标序列化失败
func toValidUTF8(val string) string {
	return strings.ToValidUTF8(val, "")
}

// routeOf 优先使用注册的路由模板，避免 form_id 让指标基数膨胀
func routeOf(c *app.RequestContext) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// MetricsMiddleware 记录 HTTP 指标，并在 hertz tracing 创建的 span 上补充表单相关属性
func MetricsMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		m := metrics.GetMetrics()
		if m == nil {
			c.Next(ctx)
			return
		}

		start := time.Now()
		m.HTTPServerActiveRequests.Add(ctx, 1)
		defer m.HTTPServerActiveRequests.Add(ctx, -1)

		span := trace.SpanFromContext(ctx)
		if formID := c.Param("form_id"); formID != "" {
			span.SetAttributes(attribute.String("rsvp.form_id", toValidUTF8(formID)))
		}
		if requestID := c.GetHeader("X-Request-Id"); len(requestID) > 0 {
			span.SetAttributes(attribute.String("http.request_id", toValidUTF8(string(requestID))))
		}

		c.Next(ctx)

		labels := metric.WithAttributes(
			semconv.HTTPMethod(toValidUTF8(string(c.Method()))),
			semconv.HTTPRoute(routeOf(c)),
			semconv.HTTPStatusCode(c.Response.StatusCode()),
		)
		m.HTTPServerRequestTotal.Add(ctx, 1, labels)
		m.HTTPServerDuration.Record(ctx, time.Since(start).Seconds(), labels)
	}
}

// NewServerTracerConfig 返回 hertz server 的 tracer 选项和对应的中间件
func NewServerTracerConfig(opts ...hertztracing.Option) (config.Option, app.HandlerFunc) {
	tracer, cfg := hertztracing.NewServerTracer(opts...)
	return tracer, hertztracing.ServerMiddleware(cfg)
}
