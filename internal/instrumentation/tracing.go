package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name used for all meetingscheduler spans.
const TracerName = "github.com/teemow/meetingscheduler"

// Span attribute keys.
const (
	SpanAttrThreadID    = "agent.thread_id"
	SpanAttrRunID       = "agent.run_id"
	SpanAttrRunStatus   = "agent.run_status"
	SpanAttrToolCallID  = "agent.tool_call_id"
	SpanAttrTool        = "agent.tool"
	SpanAttrParticipant = "calendar.participant_hash"
	SpanAttrEventCount  = "calendar.event_count"
)

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartRunSpan starts a span covering one agent run.
func StartRunSpan(ctx context.Context, threadID, runID string) (context.Context, trace.Span) {
	return StartSpan(ctx, "agent.run",
		attribute.String(SpanAttrThreadID, threadID),
		attribute.String(SpanAttrRunID, runID),
	)
}

// StartCalendarSpan starts a client span for a busy-interval lookup.
// participantHash must already be anonymized.
func StartCalendarSpan(ctx context.Context, participantHash string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "google.calendar.events.list",
		trace.WithAttributes(attribute.String(SpanAttrParticipant, participantHash)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
