package common

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/meetingscheduler/internal/instrumentation"
	"github.com/teemow/meetingscheduler/internal/server"
)

func newInstrumentedContext(t *testing.T) (*server.ServerContext, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := instrumentation.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	sc := server.NewServerContext(context.Background(), nil, server.WithMetrics(metrics))
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, reader
}

func invocations(t *testing.T, reader *sdkmetric.ManualReader, tool, status string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	want := attribute.NewSet(attribute.String("tool", tool), attribute.String("status", status))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "mcp_tool_invocations_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if dp.Attributes.Equals(&want) {
					return dp.Value
				}
			}
		}
	}
	return 0
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc, reader := newInstrumentedContext(t)

	called := false
	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, called)
	assert.Equal(t, int64(1), invocations(t, reader, "test_tool", instrumentation.StatusSuccess))
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc, reader := newInstrumentedContext(t)

	expectedErr := errors.New("test error")
	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	})

	_, err := wrapped(context.Background(), mcp.CallToolRequest{})
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, int64(1), invocations(t, reader, "test_tool", instrumentation.StatusError))
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	sc, reader := newInstrumentedContext(t)

	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("bad input"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, int64(1), invocations(t, reader, "test_tool", instrumentation.StatusError))
	assert.Zero(t, invocations(t, reader, "test_tool", instrumentation.StatusSuccess))
}

func TestInstrumentedToolHandler_NoMetrics(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil)
	defer sc.Shutdown()

	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestInstrumentedToolHandler_RegistersWithServer(t *testing.T) {
	sc, reader := newInstrumentedContext(t)

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	s.AddTool(mcp.NewTool("test_tool"), InstrumentedToolHandler("test_tool", sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("ok"), nil
		}))

	tool := s.GetTool("test_tool")
	require.NotNil(t, tool)
	require.NotNil(t, tool.Handler)

	_, err := tool.Handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), invocations(t, reader, "test_tool", instrumentation.StatusSuccess))
}
