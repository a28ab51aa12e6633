// Package observability holds the OpenTelemetry metrics recorded while
// talking to Slack and exporting conversations.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ServiceName is the instrumentation scope name.
const ServiceName = "slack-history"

// Metrics holds all application metrics.
type Metrics struct {
	// Slack Web API metrics
	APIRequestsTotal   metric.Int64Counter
	APIRequestDuration metric.Float64Histogram
	RateLimitWaits     metric.Int64Counter
	RateLimitWaitTime  metric.Float64Counter

	// Export metrics
	MessagesExported      metric.Int64Counter
	ConversationsExported metric.Int64Counter

	// OAuth metrics
	HandshakesTotal metric.Int64Counter
}

// NewMetrics creates and registers all application metrics.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.APIRequestsTotal, err = meter.Int64Counter(
		"slack.api.requests.total",
		metric.WithDescription("Total number of Slack Web API requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating slack_api_requests_total: %w", err)
	}

	m.APIRequestDuration, err = meter.Float64Histogram(
		"slack.api.request.duration",
		metric.WithDescription("Slack Web API request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating slack_api_request_duration: %w", err)
	}

	m.RateLimitWaits, err = meter.Int64Counter(
		"slack.api.rate_limit.waits",
		metric.WithDescription("Number of 429 responses waited out"),
		metric.WithUnit("{waits}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating slack_api_rate_limit_waits: %w", err)
	}

	m.RateLimitWaitTime, err = meter.Float64Counter(
		"slack.api.rate_limit.wait_time",
		metric.WithDescription("Total time spent waiting on rate limits in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating slack_api_rate_limit_wait_time: %w", err)
	}

	m.MessagesExported, err = meter.Int64Counter(
		"export.messages.total",
		metric.WithDescription("Total number of messages written to export files"),
		metric.WithUnit("{messages}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating export_messages_total: %w", err)
	}

	m.ConversationsExported, err = meter.Int64Counter(
		"export.conversations.total",
		metric.WithDescription("Total number of conversations processed by export"),
		metric.WithUnit("{conversations}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating export_conversations_total: %w", err)
	}

	m.HandshakesTotal, err = meter.Int64Counter(
		"oauth.handshakes.total",
		metric.WithDescription("Total number of OAuth handshakes by outcome"),
		metric.WithUnit("{handshakes}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating oauth_handshakes_total: %w", err)
	}

	return m, nil
}

// NoopMetrics returns metrics backed by a no-op meter.
func NoopMetrics() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider().Meter(ServiceName))
	if err != nil {
		// the noop meter never fails to create instruments
		panic(err)
	}
	return m
}

// RecordAPIRequest records one Slack Web API round trip.
func (m *Metrics) RecordAPIRequest(ctx context.Context, method string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("slack.method", method),
		attribute.Int("http.status_code", statusCode),
	)
	m.APIRequestsTotal.Add(ctx, 1, attrs)
	m.APIRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRateLimitWait records a wait triggered by a 429 response.
func (m *Metrics) RecordRateLimitWait(ctx context.Context, method string, wait time.Duration) {
	attrs := metric.WithAttributes(attribute.String("slack.method", method))
	m.RateLimitWaits.Add(ctx, 1, attrs)
	m.RateLimitWaitTime.Add(ctx, wait.Seconds(), attrs)
}

// RecordConversationExported records the outcome of exporting one conversation.
func (m *Metrics) RecordConversationExported(ctx context.Context, typeLabel string, messages int, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("conversation.type", typeLabel),
		attribute.Bool("success", success),
	)
	m.ConversationsExported.Add(ctx, 1, attrs)
	if success {
		m.MessagesExported.Add(ctx, int64(messages), attrs)
	}
}

// RecordHandshake records the terminal state of an OAuth handshake.
func (m *Metrics) RecordHandshake(ctx context.Context, outcome string) {
	m.HandshakesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
