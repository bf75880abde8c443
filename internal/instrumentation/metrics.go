package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrStatus = "status"
	attrResult = "result"
	attrTool   = "tool"
)

// Metrics provides methods for recording observability metrics.
// The zero value and a nil pointer are both valid no-op recorders.
type Metrics struct {
	runsTotal    metric.Int64Counter
	runDuration  metric.Float64Histogram
	runPolls     metric.Int64Counter
	toolCalls    metric.Int64Counter
	calQueries   metric.Int64Counter
	calDuration  metric.Float64Histogram
	oauthAuth    metric.Int64Counter
	mcpToolCalls metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all instruments registered on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.runsTotal, err = meter.Int64Counter("agent_runs_total",
		metric.WithDescription("Total number of agent runs by terminal status"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create agent_runs_total counter: %w", err)
	}

	if m.runDuration, err = meter.Float64Histogram("agent_run_duration_seconds",
		metric.WithDescription("Agent run duration from submission to terminal status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 20, 30, 60, 120),
	); err != nil {
		return nil, fmt.Errorf("failed to create agent_run_duration_seconds histogram: %w", err)
	}

	if m.runPolls, err = meter.Int64Counter("agent_run_polls_total",
		metric.WithDescription("Total number of run status polls"),
		metric.WithUnit("{poll}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create agent_run_polls_total counter: %w", err)
	}

	if m.toolCalls, err = meter.Int64Counter("agent_tool_calls_total",
		metric.WithDescription("Total number of agent tool calls serviced"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create agent_tool_calls_total counter: %w", err)
	}

	if m.calQueries, err = meter.Int64Counter("calendar_queries_total",
		metric.WithDescription("Total number of busy-interval queries"),
		metric.WithUnit("{query}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create calendar_queries_total counter: %w", err)
	}

	if m.calDuration, err = meter.Float64Histogram("calendar_query_duration_seconds",
		metric.WithDescription("Busy-interval query duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create calendar_query_duration_seconds histogram: %w", err)
	}

	if m.oauthAuth, err = meter.Int64Counter("oauth_auth_total",
		metric.WithDescription("Total number of interactive OAuth authorizations"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	if m.mcpToolCalls, err = meter.Int64Counter("mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	return m, nil
}

// RecordRun records a run that reached a terminal status.
func (m *Metrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.runsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.runsTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordPoll records one run status poll.
func (m *Metrics) RecordPoll(ctx context.Context) {
	if m == nil || m.runPolls == nil {
		return
	}
	m.runPolls.Add(ctx, 1)
}

// RecordToolCall records a serviced agent tool call.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	if m == nil || m.toolCalls == nil {
		return
	}
	m.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	))
}

// RecordCalendarQuery records a busy-interval query.
// Status is one of StatusSuccess, StatusEmpty or StatusError.
func (m *Metrics) RecordCalendarQuery(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.calQueries == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.calQueries.Add(ctx, 1, attrs)
	m.calDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthAuth records an interactive authorization attempt.
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuth == nil {
		return
	}
	m.oauthAuth.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordMCPToolInvocation records an MCP tool invocation.
func (m *Metrics) RecordMCPToolInvocation(ctx context.Context, tool, status string) {
	if m == nil || m.mcpToolCalls == nil {
		return
	}
	m.mcpToolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	))
}
