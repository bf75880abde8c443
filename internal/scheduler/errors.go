package scheduler

import (
	"errors"
	"fmt"

	"github.com/teemow/meetingscheduler/internal/assistant"
)

// ErrRunFailed is wrapped by every RunError.
var ErrRunFailed = errors.New("run failed")

// RunError reports a run that ended without an answer.
type RunError struct {
	RunID  string
	Status assistant.RunStatus
	// Cause is the provider's explanation, if any.
	Cause *assistant.RunError
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("run %s ended with status %s", e.RunID, e.Status)
	if e.Cause != nil {
		if e.Cause.Code != "" {
			return fmt.Sprintf("%s: %s: %s", msg, e.Cause.Code, e.Cause.Message)
		}
		return fmt.Sprintf("%s: %s", msg, e.Cause.Message)
	}
	return msg
}

func (e *RunError) Unwrap() error {
	return ErrRunFailed
}
