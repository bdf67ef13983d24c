package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("portalmcp/server")

var (
	toolCalls    metric.Int64Counter
	toolDuration metric.Float64Histogram
)

func init() {
	toolCalls, _ = meter.Int64Counter("mcp.tool.calls",
		metric.WithDescription("Number of tool invocations"),
		metric.WithUnit("{call}"))
	toolDuration, _ = meter.Float64Histogram("mcp.tool.duration",
		metric.WithDescription("Tool execution duration"),
		metric.WithUnit("ms"))
}

// RecordToolCall records one tool invocation on the OTel meter. With no SDK
// installed these are no-ops, which is the default for edge deployments.
func RecordToolCall(ctx context.Context, tool, status string, durationMs int64) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	)
	toolCalls.Add(ctx, 1, attrs)
	toolDuration.Record(ctx, float64(durationMs), attrs)
}
