package calendar_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetingscheduler/internal/assistant"
	"github.com/teemow/meetingscheduler/internal/scheduler"
	"github.com/teemow/meetingscheduler/internal/server"
	"github.com/teemow/meetingscheduler/internal/tools/common"
)

const (
	// BusyIntervalsToolName reads busy intervals for a list of participants.
	BusyIntervalsToolName = "calendar_busy_intervals"

	// ListEventsToolName lists events of a single calendar.
	ListEventsToolName = "calendar_list_events"

	defaultCalendarID = "primary"
	defaultMaxResults = 50
	maxMaxResults     = 250
)

// RegisterCalendarTools registers the calendar tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.CalendarClient() == nil {
		return fmt.Errorf("calendar client is required")
	}

	busyTool := mcp.NewTool(BusyIntervalsToolName,
		mcp.WithDescription("Get the busy schedule of one or more participants within a time range"),
		mcp.WithString("emailIds",
			mcp.Required(),
			mcp.Description("Comma separated email addresses of the participants"),
		),
		mcp.WithString("startTime",
			mcp.Required(),
			mcp.Description("Start of the range in ISO format, e.g. '2025-01-14T12:00:00+05:30'"),
		),
		mcp.WithString("endTime",
			mcp.Required(),
			mcp.Description("End of the range in ISO format, e.g. '2025-01-14T19:30:00+05:30'"),
		),
	)

	s.AddTool(busyTool, common.InstrumentedToolHandler(BusyIntervalsToolName, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBusyIntervals(ctx, request, sc)
		}))

	listEventsTool := mcp.NewTool(ListEventsToolName,
		mcp.WithDescription("List calendar events within a time range"),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (use 'primary' for primary calendar)"),
		),
		mcp.WithString("timeMin",
			mcp.Required(),
			mcp.Description("Start time for the range (RFC3339 format, e.g., '2025-01-01T00:00:00Z')"),
		),
		mcp.WithString("timeMax",
			mcp.Required(),
			mcp.Description("End time for the range (RFC3339 format, e.g., '2025-01-31T23:59:59Z')"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of events to return (default: 50, max: 250)"),
		),
	)

	s.AddTool(listEventsTool, common.InstrumentedToolHandler(ListEventsToolName, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	return nil
}

func handleBusyIntervals(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	query, err := assistant.ParseCalendarQuery(string(raw), sc.Location())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	schedule := scheduler.BusySchedule(ctx, sc.CalendarClient(), query)
	return mcp.NewToolResultText(strings.TrimPrefix(schedule, "\n")), nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	calendarID := defaultCalendarID
	if calIDVal, ok := args["calendarId"].(string); ok && calIDVal != "" {
		calendarID = calIDVal
	}

	timeMinStr, ok := args["timeMin"].(string)
	if !ok || timeMinStr == "" {
		return mcp.NewToolResultError("timeMin is required"), nil
	}
	timeMin, err := time.Parse(time.RFC3339, timeMinStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid timeMin format: %v", err)), nil
	}

	timeMaxStr, ok := args["timeMax"].(string)
	if !ok || timeMaxStr == "" {
		return mcp.NewToolResultError("timeMax is required"), nil
	}
	timeMax, err := time.Parse(time.RFC3339, timeMaxStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid timeMax format: %v", err)), nil
	}
	if !timeMax.After(timeMin) {
		return mcp.NewToolResultError("timeMax must be after timeMin"), nil
	}

	maxResults := int64(defaultMaxResults)
	if maxVal, ok := args["maxResults"].(float64); ok && maxVal > 0 {
		maxResults = min(int64(maxVal), maxMaxResults)
	}

	events, err := sc.CalendarClient().ListEvents(ctx, calendarID, timeMin, timeMax, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d events:\n\n", len(events))
	for i, event := range events {
		fmt.Fprintf(&b, "%d. %s\n", i+1, event.Summary)
		fmt.Fprintf(&b, "   ID: %s\n", event.ID)
		if event.AllDay {
			fmt.Fprintf(&b, "   Date: %s (all day)\n", event.Start.Format(time.DateOnly))
		} else {
			fmt.Fprintf(&b, "   Start: %s\n", event.Start.Format(time.RFC3339))
			fmt.Fprintf(&b, "   End: %s\n", event.End.Format(time.RFC3339))
		}
		if event.Location != "" {
			fmt.Fprintf(&b, "   Location: %s\n", event.Location)
		}
		if event.Organizer != "" {
			fmt.Fprintf(&b, "   Organizer: %s\n", event.Organizer)
		}
		b.WriteString("\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}
