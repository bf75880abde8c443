// Package scheduler drives agent runs to completion.
//
// A Mediator polls a run with exponential backoff until it reaches a
// terminal status. While the run requires action it services every pending
// getCalendarEvents call by reading each participant's busy intervals and
// submits all outputs in one request. Per-participant failures are reported
// inline ("unavailable: <reason>") so the agent can still reason about the
// remaining participants.
//
// Scheduler ties a Mediator to an assistant.Session: Ask submits one user
// turn and returns the agent's final answer.
package scheduler
