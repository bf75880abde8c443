// Package instrumentation provides OpenTelemetry instrumentation for
// meetingscheduler.
//
// This package enables observability through:
//   - OpenTelemetry metrics for agent runs, calendar queries and OAuth authorization
//   - Tracing spans around each scheduling turn and calendar lookup
//   - Prometheus metrics export via the optional metrics server
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Agent run metrics:
//   - agent_runs_total: Counter of finished runs by terminal status
//   - agent_run_duration_seconds: Histogram of run durations by terminal status
//   - agent_run_polls_total: Counter of run status polls
//   - agent_tool_calls_total: Counter of serviced tool calls by tool and status
//
// Calendar metrics:
//   - calendar_queries_total: Counter of busy-interval queries by status
//   - calendar_query_duration_seconds: Histogram of busy-interval query durations
//
// OAuth metrics:
//   - oauth_auth_total: Counter of interactive authorizations by result
//
// MCP metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool and status
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: meetingscheduler)
//
// All Metrics methods are safe to call on a nil *Metrics, so components can
// accept an optional recorder without guarding every call.
package instrumentation
