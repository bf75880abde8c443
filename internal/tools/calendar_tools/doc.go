// Package calendar_tools exposes the calendar reader over MCP.
//
// calendar_busy_intervals returns the same per-participant busy schedule
// the scheduling agent receives. calendar_list_events lists the events of a
// single calendar.
package calendar_tools
