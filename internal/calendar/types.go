package calendar

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/meetingscheduler/internal/google"
)

var (
	// ErrInvalidParticipant is returned when a participant is not a bare email address.
	ErrInvalidParticipant = errors.New("invalid participant")

	// ErrAuthorization is google.ErrAuthorization, re-exported so callers can
	// check calendar failures without importing the credential package.
	ErrAuthorization = google.ErrAuthorization
)

// EventSummary represents a simplified calendar event for listing
type EventSummary struct {
	ID        string
	Summary   string
	Location  string
	Start     time.Time
	End       time.Time
	AllDay    bool
	Organizer string
	Status    string
}

// TimeRange is one busy interval as reported by the provider. Start and End
// hold the raw RFC 3339 date-time, or the date for all-day events.
type TimeRange struct {
	Start string
	End   string
}

// String renders the interval as "From <start> To <end>".
func (r TimeRange) String() string {
	return fmt.Sprintf("From %s To %s", r.Start, r.End)
}

// BusyResult holds the busy intervals of one participant.
type BusyResult struct {
	Participant string
	From        time.Time
	To          time.Time
	Intervals   []TimeRange
}

// Empty reports whether the provider returned no events in the window.
func (r BusyResult) Empty() bool {
	return len(r.Intervals) == 0
}

// Lines renders every interval on its own line.
func (r BusyResult) Lines() []string {
	lines := make([]string, 0, len(r.Intervals))
	for _, iv := range r.Intervals {
		lines = append(lines, iv.String())
	}
	return lines
}

// ProviderError is a failed calendar provider call. It is never reported as
// an empty result.
type ProviderError struct {
	Participant string
	Op          string
	// StatusCode is the HTTP status, or 0 when the request never got a response.
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("calendar %s for %s failed (HTTP %d %s): %v",
			e.Op, e.Participant, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	}
	return fmt.Sprintf("calendar %s for %s failed: %v", e.Op, e.Participant, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the call may succeed.
func (e *ProviderError) Temporary() bool {
	if errors.Is(e.Err, ErrAuthorization) {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// eventTime returns the raw date-time of an event boundary, falling back to
// the date of all-day events.
func eventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

func toTimeRange(event *calendar.Event) TimeRange {
	return TimeRange{
		Start: eventTime(event.Start),
		End:   eventTime(event.End),
	}
}

func parseEventTime(t *calendar.EventDateTime) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	if t.DateTime != "" {
		parsed, _ := time.Parse(time.RFC3339, t.DateTime)
		return parsed, false
	}
	if t.Date != "" {
		parsed, _ := time.Parse("2006-01-02", t.Date)
		return parsed, true
	}
	return time.Time{}, false
}

// toEventSummary converts a Calendar API event to EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:       event.Id,
		Summary:  event.Summary,
		Location: event.Location,
		Status:   event.Status,
	}
	summary.Start, summary.AllDay = parseEventTime(event.Start)
	summary.End, _ = parseEventTime(event.End)

	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}

	return summary
}
