package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics RSVP 相关指标集合
type OTelMetrics struct {
	SubmissionsTotal       metric.Int64Counter
	SubmissionDuration     metric.Float64Histogram
	ValidationFailureTotal metric.Int64Counter
	PostalLookupsTotal     metric.Int64Counter
	CMSFetchTotal          metric.Int64Counter

	// HTTP 相关指标
	HTTPServerRequestTotal   metric.Int64Counter
	HTTPServerDuration       metric.Float64Histogram
	HTTPServerActiveRequests metric.Int64UpDownCounter
}

var (
	metrics  *OTelMetrics
	initOnce sync.Once
	initErr  error
)

// InitMetrics 在全局 MeterProvider 上创建指标。
// 没有调用 otel.SetMeterProvider 时得到的是 noop 指标，可以安全使用
func InitMetrics() error {
	initOnce.Do(func() {
		metrics, initErr = newMetrics(otel.Meter("wedding-rsvp"))
	})
	return initErr
}

func newMetrics(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	if m.SubmissionsTotal, err = meter.Int64Counter(
		"rsvp_submissions_total",
		metric.WithDescription("RSVP submissions by outcome"),
		metric.WithUnit("{submission}"),
	); err != nil {
		return nil, err
	}

	if m.SubmissionDuration, err = meter.Float64Histogram(
		"rsvp_submission_duration_seconds",
		metric.WithDescription("Time spent delivering a submission"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.ValidationFailureTotal, err = meter.Int64Counter(
		"rsvp_validation_failures_total",
		metric.WithDescription("Submit attempts rejected by validation"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}

	if m.PostalLookupsTotal, err = meter.Int64Counter(
		"postal_lookups_total",
		metric.WithDescription("Postal code lookups by result"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}

	if m.CMSFetchTotal, err = meter.Int64Counter(
		"cms_fetch_total",
		metric.WithDescription("CMS guest lookups by source and result"),
		metric.WithUnit("{fetch}"),
	); err != nil {
		return nil, err
	}

	if m.HTTPServerRequestTotal, err = meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.HTTPServerDuration, err = meter.Float64Histogram(
		"http_server_duration_seconds",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.HTTPServerActiveRequests, err = meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// GetMetrics 首次调用时初始化，失败返回 nil
func GetMetrics() *OTelMetrics {
	if err := InitMetrics(); err != nil {
		return nil
	}
	return metrics
}

// RecordSubmission outcome: success, failed, validation_failed
func RecordSubmission(ctx context.Context, transport, outcome string, seconds float64) {
	m := GetMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("outcome", outcome),
	)
	m.SubmissionsTotal.Add(ctx, 1, attrs)
	if seconds > 0 {
		m.SubmissionDuration.Record(ctx, seconds, attrs)
	}
}

func RecordValidationFailure(ctx context.Context, fields int) {
	if m := GetMetrics(); m != nil {
		m.ValidationFailureTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("fields", fields)))
	}
}

// RecordPostalLookup result: found, not_found, failed, stale
func RecordPostalLookup(ctx context.Context, result string) {
	if m := GetMetrics(); m != nil {
		m.PostalLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}

// RecordCMSFetch result: cache, ok, not_found, error
func RecordCMSFetch(ctx context.Context, result string) {
	if m := GetMetrics(); m != nil {
		m.CMSFetchTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}
