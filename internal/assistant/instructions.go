package assistant

import (
	"fmt"
	"strings"
	"time"
)

// AssistantName is the display name of the created agent.
const AssistantName = "Meeting Scheduler"

// Persona is the standing instruction set of the agent.
const Persona = `This assistant takes instructions to schedule a meeting between multiple employees in your organization.
It will fetch public calendar events of each employee along with start and end time and will schedule the meeting according to availability.
Only suggest time which is available to all participants.`

// Default working hours, in 24h "15:04" form.
const (
	DefaultWorkStart = "10:00"
	DefaultWorkEnd   = "19:30"
)

// Profile describes the operator on whose behalf meetings are scheduled.
type Profile struct {
	Name      string
	Email     string
	Location  *time.Location
	WorkStart string
	WorkEnd   string
}

// RunInstructions renders the per-run context: who the operator is, the
// current time in their zone and their working hours. Unset name and email
// are left out.
func RunInstructions(p Profile, now time.Time) string {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	workStart, workEnd := p.WorkStart, p.WorkEnd
	if workStart == "" {
		workStart = DefaultWorkStart
	}
	if workEnd == "" {
		workEnd = DefaultWorkEnd
	}

	var parts []string
	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("Address the user as %s.", p.Name))
	}
	if p.Email != "" {
		parts = append(parts, fmt.Sprintf("Email id is '%s'; when the user says \"me\" they mean this address.", p.Email))
	}
	parts = append(parts,
		fmt.Sprintf("Today is %s (%s).", now.In(loc).Format(time.RFC3339), now.In(loc).Weekday()),
		fmt.Sprintf("Working hours are %s to %s %s.", workStart, workEnd, loc.String()),
	)
	return strings.Join(parts, " ")
}
