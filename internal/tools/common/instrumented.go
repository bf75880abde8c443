package common

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetingscheduler/internal/instrumentation"
	"github.com/teemow/meetingscheduler/internal/logging"
	"github.com/teemow/meetingscheduler/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with metrics and logging.
// A handler that returns an error, or a result flagged IsError, is counted
// as a failed invocation.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartSpan(ctx, "mcp.tool."+toolName)
		defer span.End()

		start := time.Now()
		result, err := handler(ctx, request)

		status := invocationStatus(result, err)
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordMCPToolInvocation(ctx, toolName, status)
		sc.Logger().Debug("tool invoked",
			logging.Tool(toolName),
			logging.Status(status),
			slog.Duration(logging.KeyDuration, time.Since(start)))

		return result, err
	}
}

func invocationStatus(result *mcp.CallToolResult, err error) string {
	if err != nil || (result != nil && result.IsError) {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}
