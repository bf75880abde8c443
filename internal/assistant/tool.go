package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CalendarToolName is the function the agent calls to read calendars.
const CalendarToolName = "getCalendarEvents"

// ErrMalformedArguments is returned when a tool call cannot be turned into a
// query. The run is not failed; the diagnostic goes back to the agent.
var ErrMalformedArguments = errors.New("malformed tool arguments")

// CalendarTool declares the calendar lookup function.
func CalendarTool() FunctionTool {
	return FunctionTool{
		Name:        CalendarToolName,
		Description: "Gets list of events along with their start and end time from the calendar.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"emailIds": map[string]any{
					"type":        "string",
					"description": "comma separated emailIds for whom scheduling needs to be done",
				},
				"startTime": map[string]any{
					"type":        "string",
					"description": "start time of the calendar in iso format",
				},
				"endTime": map[string]any{
					"type":        "string",
					"description": "end time of the calendar in iso format",
				},
			},
			"required": []string{"emailIds", "startTime", "endTime"},
		},
	}
}

// CalendarQuery is a parsed getCalendarEvents call.
type CalendarQuery struct {
	// Participants in the order the agent listed them.
	Participants []string
	Start        time.Time
	End          time.Time
}

// calendarArgs mirrors the JSON arguments. EmailIDs is normally a comma
// separated string but an array is accepted too.
type calendarArgs struct {
	EmailIDs  json.RawMessage `json:"emailIds"`
	StartTime string          `json:"startTime"`
	EndTime   string          `json:"endTime"`
}

// timeLayouts are tried in order. Layouts without an offset are read in the
// operator's zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseCalendarQuery parses the arguments of a getCalendarEvents call.
// All three fields are required; every failure wraps ErrMalformedArguments.
func ParseCalendarQuery(arguments string, loc *time.Location) (CalendarQuery, error) {
	if loc == nil {
		loc = time.Local
	}

	var args calendarArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return CalendarQuery{}, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedArguments, err)
	}

	var missing []string
	participants, err := parseParticipants(args.EmailIDs)
	if err != nil {
		return CalendarQuery{}, err
	}
	if len(participants) == 0 {
		missing = append(missing, "emailIds")
	}
	if strings.TrimSpace(args.StartTime) == "" {
		missing = append(missing, "startTime")
	}
	if strings.TrimSpace(args.EndTime) == "" {
		missing = append(missing, "endTime")
	}
	if len(missing) > 0 {
		return CalendarQuery{}, fmt.Errorf("%w: missing required %s", ErrMalformedArguments, strings.Join(missing, ", "))
	}

	start, err := parseTime(args.StartTime, loc)
	if err != nil {
		return CalendarQuery{}, fmt.Errorf("%w: startTime: %v", ErrMalformedArguments, err)
	}
	end, err := parseTime(args.EndTime, loc)
	if err != nil {
		return CalendarQuery{}, fmt.Errorf("%w: endTime: %v", ErrMalformedArguments, err)
	}
	if !end.After(start) {
		return CalendarQuery{}, fmt.Errorf("%w: endTime %s is not after startTime %s",
			ErrMalformedArguments, args.EndTime, args.StartTime)
	}

	return CalendarQuery{Participants: participants, Start: start, End: end}, nil
}

func parseParticipants(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		list = strings.Split(joined, ",")
	} else if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: emailIds must be a comma separated string", ErrMalformedArguments)
	}

	participants := make([]string, 0, len(list))
	for _, p := range list {
		if p = strings.TrimSpace(p); p != "" {
			participants = append(participants, p)
		}
	}
	return participants, nil
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 time", value)
}
