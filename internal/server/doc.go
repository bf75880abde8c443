// Package server provides the runtime pieces that sit next to the
// scheduler: the shared context for MCP tool handlers and the Prometheus
// metrics endpoint.
//
// ServerContext carries the calendar client, logger and metrics recorder
// into every tool handler. The calendar client authorizes lazily, so the
// MCP server starts even when no Google token has been stored yet.
//
// MetricsServer exposes /metrics for Prometheus scraping and /healthz for
// liveness checks. It requires an instrumentation provider configured with
// the prometheus exporter.
package server
