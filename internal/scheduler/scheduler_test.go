package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetingscheduler/internal/assistant"
	"github.com/teemow/meetingscheduler/internal/calendar"
)

func TestAsk_TuesdayAfternoonScenario(t *testing.T) {
	const answer = "SJ, the earliest slot that works for a@x.com and b@x.com is Tuesday 16:30-16:45."

	backend := &fakeBackend{
		script: []assistant.Run{
			status(assistant.RunStatusInProgress),
			requiresAction(assistant.ToolCall{
				ID:        "call_1",
				Name:      assistant.CalendarToolName,
				Arguments: `{"emailIds":"a@x.com,b@x.com","startTime":"2024-01-09T13:00:00+01:00","endTime":"2024-01-09T19:30:00+01:00"}`,
			}),
			status(assistant.RunStatusCompleted),
		},
		answer: answer,
	}
	cal := &fakeCalendar{busy: map[string][]calendar.TimeRange{
		"a@x.com": {{Start: "2024-01-09T13:00:00+01:00", End: "2024-01-09T16:30:00+01:00"}},
		"b@x.com": {{Start: "2024-01-09T17:00:00+01:00", End: "2024-01-09T18:00:00+01:00"}},
	}}

	session := assistant.NewSession(backend, assistant.SessionConfig{
		Model:   "gpt-4o",
		Profile: assistant.Profile{Name: "SJ", Email: "sj@example.com", Location: testZone},
		Now:     func() time.Time { return time.Date(2024, 1, 8, 9, 0, 0, 0, testZone) },
	})
	s := New(session, newTestMediator(backend, cal))

	got, err := s.Ask(context.Background(), "me, a@x.com, b@x.com, Tuesday afternoon, 15 minutes")
	require.NoError(t, err)

	assert.Equal(t, answer, got, "the final message is returned verbatim")
	assert.Equal(t, []string{"me, a@x.com, b@x.com, Tuesday afternoon, 15 minutes"}, backend.messages)
	assert.Contains(t, backend.instr[0], "Working hours are 10:00 to 19:30")

	assert.Equal(t, []string{"a@x.com", "b@x.com"}, cal.participants())
	require.Len(t, backend.submits, 1)
	output := backend.submits[0][0].Output
	assert.Equal(t, 2, strings.Count(output, "busy schedule is as follows"))
	assert.Less(t, strings.Index(output, "a@x.com busy"), strings.Index(output, "b@x.com busy"))
}

type failingSubmitter struct{ err error }

func (f failingSubmitter) SubmitUserTurn(context.Context, string) (assistant.Run, error) {
	return assistant.Run{}, f.err
}

func TestAsk_SubmitFailure(t *testing.T) {
	cause := errors.New("invalid api key")
	s := New(failingSubmitter{err: cause}, newTestMediator(&fakeBackend{}, &fakeCalendar{}))

	_, err := s.Ask(context.Background(), "hello")
	assert.ErrorIs(t, err, cause)
}

func TestAsk_RunFailure(t *testing.T) {
	backend := &fakeBackend{script: []assistant.Run{status(assistant.RunStatusInProgress), status(assistant.RunStatusFailed)}}
	session := assistant.NewSession(backend, assistant.SessionConfig{Model: "gpt-4o"})

	_, err := New(session, newTestMediator(backend, &fakeCalendar{})).Ask(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrRunFailed)
}
